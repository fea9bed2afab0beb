package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"tickstore/internal/config"
	"tickstore/internal/database"
	"tickstore/internal/models"
)

var ErrStoreClosed = errors.New("tick store closed")

// StoreState 生命周期: stopped → starting → running → stopping → stopped(终态)
type StoreState int32

const (
	StateStopped StoreState = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s StoreState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Options configures a TickStore.
type Options struct {
	Store        database.Options
	MirrorDir    string
	ArchivePath  string
	Writer       WriterConfig
	DrainTimeout time.Duration

	QueueCapacity        int
	Overflow             OverflowPolicy
	MirrorMinFreePercent float64
}

// OptionsFromConfig maps the env configuration onto store options.
func OptionsFromConfig(cfg *config.Config) Options {
	overflow := DropNewest
	if cfg.OverflowPolicy == config.OverflowDropOldest {
		overflow = DropOldest
	}
	return Options{
		Store: database.Options{
			Driver:      cfg.StoreDriver,
			Path:        cfg.StorePath,
			DSN:         cfg.DatabaseURL,
			BusyTimeout: cfg.BusyTimeout,
		},
		MirrorDir:   cfg.MirrorDir,
		ArchivePath: cfg.ArchivePath,
		Writer: WriterConfig{
			BatchSize:    cfg.BatchSize,
			PollInterval: cfg.PollInterval,
		},
		DrainTimeout:         cfg.DrainTimeout,
		QueueCapacity:        cfg.QueueCapacity,
		Overflow:             overflow,
		MirrorMinFreePercent: cfg.MirrorMinFreePercent,
	}
}

// TickStore 持有队列、drainer 和唯一的存储句柄
// 写入只经过 drainer；读取共享同一句柄 (WAL 允许并发读)
type TickStore struct {
	opts  Options
	queue *TickQueue
	state atomic.Int32

	mu        sync.RWMutex
	closed    bool
	closeDone chan struct{}
	db        *sqlx.DB
	writer    *AsyncWriter
	mirrors   *MultiSink
}

func NewTickStore(opts Options) *TickStore {
	if opts.Store.Driver == "" {
		opts.Store.Driver = database.DriverSQLite
	}
	if opts.Store.Path == "" {
		opts.Store.Path = "ticks.db"
	}
	if opts.MirrorDir == "" {
		opts.MirrorDir = "csv_data"
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = time.Second
	}
	opts.Writer = opts.Writer.withDefaults()
	return &TickStore{
		opts:      opts,
		queue:     NewTickQueue(opts.QueueCapacity, opts.Overflow),
		closeDone: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *TickStore) State() StoreState {
	return StoreState(s.state.Load())
}

// DB exposes the live handle (nil unless running).
func (s *TickStore) DB() *sqlx.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// WriteRate returns committed rows per second, 0 when not running.
func (s *TickStore) WriteRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writer == nil {
		return 0
	}
	return s.writer.WriteRate()
}

// QueueLen returns the number of ticks waiting for the drainer.
func (s *TickStore) QueueLen() int {
	return s.queue.Len()
}

// Start 建目录、开库、建表，然后启动 drainer。重复调用无副作用
func (s *TickStore) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.State() != StateStopped {
		return nil
	}
	s.state.Store(int32(StateStarting))

	if err := s.startLocked(ctx); err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}

	s.state.Store(int32(StateRunning))
	GetMetrics().RecordStartTime()
	Logger.Info("tick_store_started",
		slog.String("driver", s.opts.Store.Driver),
		slog.String("store", s.opts.Store.Path),
		slog.String("mirror_dir", s.opts.MirrorDir))
	return nil
}

func (s *TickStore) startLocked(ctx context.Context) error {
	if err := os.MkdirAll(s.opts.MirrorDir, 0o755); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}

	db, err := database.Open(ctx, s.opts.Store)
	if err != nil {
		return err
	}
	if err := database.InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	sinks := []BatchSink{NewCSVMirror(s.opts.MirrorDir, NewDiskGuard(s.opts.MirrorDir, s.opts.MirrorMinFreePercent))}
	if s.opts.ArchivePath != "" {
		archive, err := NewArchiveSink(s.opts.ArchivePath)
		if err != nil {
			// 录制是可选的，失败不阻止启动
			Logger.Error("failed_to_init_archive_sink", "path", s.opts.ArchivePath, "err", err)
		} else {
			sinks = append(sinks, archive)
		}
	}

	s.db = db
	s.mirrors = NewMultiSink(sinks...)
	s.writer = NewAsyncWriter(s.queue, NewStoreSink(db), s.mirrors, s.opts.Writer)
	s.writer.Start()
	return nil
}

// Enqueue 提交一条 tick：从不阻塞，从不向调用方报错
func (s *TickStore) Enqueue(t models.Tick) {
	m := GetMetrics()
	evicted, err := s.queue.Push(t)
	switch {
	case errors.Is(err, ErrQueueClosed):
		m.RecordDropped(DropReasonClosed)
		Logger.Debug("tick_enqueue_dropped", "reason", DropReasonClosed, "symbol", t.Symbol)
		return
	case errors.Is(err, ErrQueueFull):
		m.RecordDropped(DropReasonFull)
		Logger.Debug("tick_enqueue_dropped", "reason", DropReasonFull, "symbol", t.Symbol)
		return
	}
	if evicted {
		m.RecordDropped(DropReasonEvicted)
	}
	m.RecordEnqueued()
}

// Close 停止接收、在 DrainTimeout 内等待 drainer，随后关闭镜像与存储
// 幂等，未 Start 也可调用；重复调用会等第一次完成。返回的 error 仅用于记录日志
// 排空期间不持有 s.mu，读路径不会被 shutdown 卡住
func (s *TickStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.closeDone
		return nil
	}
	s.closed = true
	s.queue.Close()
	defer close(s.closeDone)

	writer, mirrors := s.writer, s.mirrors
	if writer == nil {
		s.state.Store(int32(StateStopped))
		s.mu.Unlock()
		return nil
	}
	s.state.Store(int32(StateStopping))
	s.mu.Unlock()

	var errs []error
	if err := writer.Shutdown(s.opts.DrainTimeout); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	if err := mirrors.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close mirrors: %w", err))
	}

	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if err := db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.state.Store(int32(StateStopped))

	err := errors.Join(errs...)
	if err != nil {
		Logger.Warn("tick_store_closed_with_errors", "err", err)
	} else {
		Logger.Info("tick_store_closed")
	}
	return err
}

// FetchRecent 返回最多 limit 条最新记录 (新的在前)
// 运行中复用活动句柄，否则临时开一个连接读完即关
func (s *TickStore) FetchRecent(ctx context.Context, limit int) ([]models.RecentTick, error) {
	if limit <= 0 || !database.StoreExists(s.opts.Store) {
		return []models.RecentTick{}, nil
	}

	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db != nil && s.State() == StateRunning {
		rows, err := database.FetchRecent(ctx, db, limit)
		if err == nil {
			return rows, nil
		}
		Logger.Warn("fetch_recent_live_failed", "err", err)
	}

	conn, err := database.Open(ctx, s.opts.Store)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return database.FetchRecent(ctx, conn, limit)
}
