package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

const createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, ts)`

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS ticks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	ts TEXT NOT NULL,
	price REAL NOT NULL,
	size REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, createIndexSQL}

var postgresSchema = []string{`
CREATE TABLE IF NOT EXISTS ticks (
	id BIGSERIAL PRIMARY KEY,
	symbol TEXT NOT NULL,
	ts TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	size DOUBLE PRECISION,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`, createIndexSQL}

// InitSchema 确保 ticks 表与索引已就绪 (幂等)
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	schema := sqliteSchema
	if IsPostgres(db) {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize database schema: %w", err)
		}
	}
	slog.Debug("tick_schema_ready", "driver", db.DriverName())
	return nil
}
