package engine

import (
	"context"
	"errors"

	"tickstore/internal/models"
)

// BatchWriter 结构化存储的写入端：一批一个事务，结果以值返回而不是 error
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch []models.Tick) FlushResult
}

// BatchSink 尽力而为的次级落盘 (CSV 镜像, LZ4 录制)
type BatchSink interface {
	WriteBatch(ctx context.Context, batch []models.Tick) error
	Close() error
}

// MultiSink 分发器 (类似 Unix 的 tee 命令)
type MultiSink struct {
	sinks []BatchSink
}

func NewMultiSink(sinks ...BatchSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// WriteBatch hands the batch to every sink; one sink failing never stops the others.
func (m *MultiSink) WriteBatch(ctx context.Context, batch []models.Tick) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.WriteBatch(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns how many sinks are attached.
func (m *MultiSink) Len() int { return len(m.sinks) }
