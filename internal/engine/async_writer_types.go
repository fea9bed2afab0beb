package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tickstore/internal/monitor"
)

// Drainer defaults.
const (
	DefaultBatchSize       = 200
	DefaultPollInterval    = time.Second
	DefaultRecoveryBackoff = 200 * time.Millisecond
)

// WriterConfig 批处理配置
type WriterConfig struct {
	BatchSize       int
	PollInterval    time.Duration
	RecoveryBackoff time.Duration
}

func (c WriterConfig) withDefaults() WriterConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RecoveryBackoff <= 0 {
		c.RecoveryBackoff = DefaultRecoveryBackoff
	}
	return c
}

// AsyncWriter 单一后台 drainer：等待首条 → 非阻塞攒批 → 事务写入 → 派发镜像
type AsyncWriter struct {
	queue  *TickQueue
	store  BatchWriter
	mirror BatchSink
	cfg    WriterConfig

	// 状态控制
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	// 镜像写入链：每批等待上一批完成，保证文件顺序
	mirrorWG   sync.WaitGroup
	mirrorTail chan struct{}

	// 性能指标 (原子操作)
	batches       atomic.Uint64
	writeDuration atomic.Int64 // 纳秒
	rate          *monitor.RateMonitor
}
