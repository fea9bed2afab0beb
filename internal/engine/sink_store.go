package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"tickstore/internal/database"
	"tickstore/internal/models"
)

var ErrCoerce = errors.New("tick field is not a finite number")

// Batch failure stages and row skip reasons.
const (
	StageBegin  = "begin"
	StageCommit = "commit"

	SkipReasonCoerce = "coerce"
	SkipReasonInsert = "insert"
)

// FlushResult 描述一批数据的落盘结果
type FlushResult struct {
	Attempted int
	Written   int
	Skipped   int
	Stage     string // 失败阶段，仅在 Err != nil 时有效
	Err       error
}

// StoreSink 把一批 tick 写入 ticks 表：坏行跳过，坏批整批回滚，永不向上抛错
type StoreSink struct {
	db        *sqlx.DB
	savepoint bool
}

func NewStoreSink(db *sqlx.DB) *StoreSink {
	// PostgreSQL aborts the whole transaction on a failed statement; a
	// per-row savepoint keeps a bad row from poisoning the batch.
	return &StoreSink{db: db, savepoint: database.IsPostgres(db)}
}

func (s *StoreSink) WriteBatch(ctx context.Context, batch []models.Tick) FlushResult {
	res := FlushResult{Attempted: len(batch)}
	if len(batch) == 0 {
		return res
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		res.Stage, res.Err = StageBegin, err
		LogBatchDropped(StageBegin, len(batch), err)
		return res
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range batch {
		price, size, err := coerceTick(t)
		if err != nil {
			res.Skipped++
			GetMetrics().RecordRowSkipped(SkipReasonCoerce)
			LogRowSkipped(SkipReasonCoerce, t.Symbol, t.TS, err)
			continue
		}
		if err := s.insert(ctx, tx, t, price, size); err != nil {
			res.Skipped++
			GetMetrics().RecordRowSkipped(SkipReasonInsert)
			LogRowSkipped(SkipReasonInsert, t.Symbol, t.TS, err)
			continue
		}
		res.Written++
	}

	if err := tx.Commit(); err != nil {
		res.Stage, res.Err = StageCommit, err
		res.Written = 0
		LogBatchDropped(StageCommit, len(batch), err)
		return res
	}
	return res
}

func (s *StoreSink) insert(ctx context.Context, tx *sqlx.Tx, t models.Tick, price, size float64) error {
	if !s.savepoint {
		return database.InsertTick(ctx, tx, t.Symbol, t.TS, price, size)
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT tick_row"); err != nil {
		return err
	}
	if err := database.InsertTick(ctx, tx, t.Symbol, t.TS, price, size); err != nil {
		_, _ = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT tick_row")
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT tick_row")
	return err
}

func coerceTick(t models.Tick) (price, size float64, err error) {
	price, err = coerceNumber(t.Price)
	if err != nil {
		return 0, 0, fmt.Errorf("price %q: %w", t.Price, err)
	}
	if t.Size == "" {
		return price, 0, nil
	}
	size, err = coerceNumber(t.Size)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", t.Size, err)
	}
	return price, size, nil
}

func coerceNumber(n models.RawValue) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(n.String()), 64)
	if err != nil {
		return 0, ErrCoerce
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrCoerce
	}
	return v, nil
}
