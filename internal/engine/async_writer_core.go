package engine

import (
	"context"
	"log/slog"
	"time"

	"tickstore/internal/models"
	"tickstore/internal/monitor"
)

// NewAsyncWriter 初始化。mirror 可以为 nil
func NewAsyncWriter(queue *TickQueue, store BatchWriter, mirror BatchSink, cfg WriterConfig) *AsyncWriter {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		queue:  queue,
		store:  store,
		mirror: mirror,
		cfg:    cfg.withDefaults(),
		ctx:    ctx,
		cancel: cancel,
		rate:   monitor.NewRateMonitor(),
	}
}

// Start 启动写入主循环 (只会启动一次)
func (w *AsyncWriter) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	Logger.Info("📝 AsyncWriter: Engine Started",
		"batch_size", w.cfg.BatchSize,
		"poll_interval", w.cfg.PollInterval)
	w.wg.Add(1)
	go w.run()
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	for {
		if w.ctx.Err() != nil {
			return
		}

		first, ok := w.queue.DequeueWait(w.cfg.PollInterval)
		if !ok {
			// 超时即检查点；队列已关闭且排空则退出
			if w.queue.Closed() && w.queue.Len() == 0 {
				return
			}
			continue
		}

		batch := w.drainBatch(first)
		if w.runCycle(batch) {
			select {
			case <-time.After(w.cfg.RecoveryBackoff):
			case <-w.ctx.Done():
				return
			}
		}
	}
}

// drainBatch 以 first 开头，非阻塞地再取最多 BatchSize-1 条
func (w *AsyncWriter) drainBatch(first models.Tick) []models.Tick {
	batch := make([]models.Tick, 1, w.cfg.BatchSize)
	batch[0] = first
	for len(batch) < w.cfg.BatchSize {
		t, ok := w.queue.TryDequeue()
		if !ok {
			break
		}
		batch = append(batch, t)
	}
	GetMetrics().UpdateQueueDepth(w.queue.Len())
	return batch
}

// Shutdown 停止接收并等待 drainer 排空；超时后强制取消
// 总耗时不超过 timeout 加一个很小的常数
func (w *AsyncWriter) Shutdown(timeout time.Duration) error {
	Logger.Info("📝 AsyncWriter: Shutting down...", "pending", w.queue.Len())
	deadline := time.Now().Add(timeout)
	w.queue.Close()

	if w.started.Load() && !waitTimeout(&w.wg, timeout) {
		w.cancel()
		GetMetrics().RecordShutdownForced()
		Logger.Warn("📝 AsyncWriter: drain timeout, cancelling in-flight batch",
			slog.Duration("timeout", timeout),
			slog.Int("abandoned", w.queue.Len()))
		waitTimeout(&w.wg, forcedExitGrace)
		return context.DeadlineExceeded
	}
	w.cancel()

	// drainer 已退出，不会再有新的镜像任务
	if !waitTimeout(&w.mirrorWG, max(time.Until(deadline), forcedExitGrace)) {
		Logger.Warn("📝 AsyncWriter: mirror writes still in flight at shutdown")
		return context.DeadlineExceeded
	}
	return nil
}

// WriteRate returns committed rows per second over the last few seconds.
func (w *AsyncWriter) WriteRate() float64 {
	return w.rate.Rate()
}

// GetMetrics 获取性能指标
func (w *AsyncWriter) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"batches":           w.batches.Load(),
		"write_duration_ms": time.Duration(w.writeDuration.Load()).Milliseconds(),
		"queue_depth":       w.queue.Len(),
		"rows_per_sec":      w.rate.Rate(),
	}
}

const forcedExitGrace = 50 * time.Millisecond

func waitTimeout(wg interface{ Wait() }, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
