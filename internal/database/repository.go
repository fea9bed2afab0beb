package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tickstore/internal/models"
)

const (
	insertTickSQL  = `INSERT INTO ticks (symbol, ts, price, size) VALUES (?, ?, ?, ?)`
	recentTicksSQL = `SELECT symbol, ts, price, COALESCE(size, 0) AS size FROM ticks ORDER BY id DESC LIMIT ?`
)

type execer interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	Rebind(string) string
}

type queryer interface {
	sqlx.QueryerContext
	Rebind(string) string
}

// InsertTick 在调用方的事务内写入一行
func InsertTick(ctx context.Context, ex execer, symbol, ts string, price, size float64) error {
	if _, err := ex.ExecContext(ctx, ex.Rebind(insertTickSQL), symbol, ts, price, size); err != nil {
		return fmt.Errorf("insert tick %s@%s: %w", symbol, ts, err)
	}
	return nil
}

// FetchRecent returns up to limit rows, newest first.
func FetchRecent(ctx context.Context, db queryer, limit int) ([]models.RecentTick, error) {
	if limit <= 0 {
		return []models.RecentTick{}, nil
	}
	rows := make([]models.RecentTick, 0, min(limit, 1024))
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(recentTicksSQL), limit); err != nil {
		return nil, fmt.Errorf("fetch recent ticks: %w", err)
	}
	return rows, nil
}
