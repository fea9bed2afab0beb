package engine

import (
	"context"
	"time"

	"tickstore/internal/models"
	"tickstore/internal/recovery"
)

// runCycle 同步写库，再派发镜像；返回本轮是否发生 panic
func (w *AsyncWriter) runCycle(batch []models.Tick) bool {
	panicked := recovery.WithRecoveryNamed("drain_cycle", func() {
		w.flush(batch)
		w.dispatchMirror(batch)
	})
	if panicked {
		GetMetrics().RecordDrainerPanic()
	}
	return panicked
}

func (w *AsyncWriter) flush(batch []models.Tick) {
	start := time.Now()
	res := w.store.WriteBatch(w.ctx, batch)
	dur := time.Since(start)

	GetMetrics().RecordFlush(res, dur)
	w.batches.Add(1)
	w.writeDuration.Store(int64(dur))
	w.rate.Record(res.Written)

	if dur > 500*time.Millisecond {
		Logger.Warn("📝 AsyncWriter: SLOW WRITE DETECTED",
			"batch_len", len(batch),
			"dur", dur)
	}
	if res.Err == nil {
		Logger.Debug("📝 AsyncWriter: Batch Flushed",
			"batch_len", len(batch),
			"written", res.Written,
			"skipped", res.Skipped,
			"dur", dur)
	}
}

// dispatchMirror 不等待镜像完成；但第 N 批的镜像写入排在第 N+1 批之前
func (w *AsyncWriter) dispatchMirror(batch []models.Tick) {
	if w.mirror == nil {
		return
	}
	GetMetrics().RecordMirrorBatch()

	prev := w.mirrorTail
	next := make(chan struct{})
	w.mirrorTail = next

	w.mirrorWG.Add(1)
	go func() {
		defer w.mirrorWG.Done()
		defer close(next)
		if prev != nil {
			<-prev
		}
		recovery.WithRecoveryNamed("mirror_write", func() {
			_ = w.mirror.WriteBatch(context.Background(), batch)
		})
	}()
}
