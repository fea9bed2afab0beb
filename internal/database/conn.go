package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PGX Driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite Driver
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Options 描述如何打开结构化存储
type Options struct {
	Driver      string
	Path        string // sqlite 文件
	DSN         string // pgx 连接串
	BusyTimeout time.Duration
}

// IsPostgres reports whether the handle talks to PostgreSQL.
func IsPostgres(db *sqlx.DB) bool {
	switch db.DriverName() {
	case DriverPostgres, "postgres":
		return true
	}
	return false
}

// Open 打开连接并应用面向持久性的设置 (WAL + busy_timeout)
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return openSQLite(ctx, opts)
	case DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, DriverPostgres, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

func openSQLite(ctx context.Context, opts Options) (*sqlx.DB, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(absPath(opts.Path)), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}
	// _txlock=immediate: the writer takes the lock at BEGIN instead of upgrading mid-transaction
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_txlock=immediate",
		opts.Path, busy.Milliseconds())

	db, err := sqlx.ConnectContext(ctx, DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(4)

	var mode string
	if err := db.GetContext(ctx, &mode, "PRAGMA journal_mode"); err == nil {
		slog.Debug("sqlite_store_opened", "path", opts.Path, "journal_mode", mode)
	}
	return db, nil
}

// StoreExists reports whether the sqlite file has been created yet.
// A pgx store always exists from the reader's point of view.
func StoreExists(opts Options) bool {
	if opts.Driver == DriverPostgres {
		return true
	}
	_, err := os.Stat(opts.Path)
	return err == nil
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
