package engine

import (
	"time"
)

// RecordEnqueued records a tick accepted at intake
func (m *Metrics) RecordEnqueued() {
	m.TicksEnqueued.Inc()
}

// RecordDropped records a tick lost at intake
func (m *Metrics) RecordDropped(reason string) {
	m.TicksDropped.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth updates the intake queue gauge
func (m *Metrics) UpdateQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordFlush records the outcome of one transactional batch write
func (m *Metrics) RecordFlush(res FlushResult, duration time.Duration) {
	m.BatchSize.Observe(float64(res.Attempted))
	m.FlushLatency.Observe(duration.Seconds())
	if res.Err != nil {
		m.BatchesFailed.WithLabelValues(res.Stage).Inc()
		return
	}
	m.BatchesFlushed.Inc()
	m.RowsWritten.Add(float64(res.Written))
}

// RecordRowSkipped records a tick skipped inside an otherwise healthy batch
func (m *Metrics) RecordRowSkipped(reason string) {
	m.RowsSkipped.WithLabelValues(reason).Inc()
}

// RecordMirrorBatch records a batch dispatched to the mirror
func (m *Metrics) RecordMirrorBatch() {
	m.MirrorBatches.Inc()
}

// RecordMirrorError records one failed mirror file operation
func (m *Metrics) RecordMirrorError(target string) {
	m.MirrorErrors.WithLabelValues(target).Inc()
}

// RecordMirrorSuspended records a mirror write skipped by the disk guard
func (m *Metrics) RecordMirrorSuspended() {
	m.MirrorSuspended.Inc()
}

// RecordDrainerPanic records a recovered drain-loop panic
func (m *Metrics) RecordDrainerPanic() {
	m.DrainerPanics.Inc()
}

// RecordRecoveredPanic records a panic swallowed by a recovery wrapper
func (m *Metrics) RecordRecoveredPanic(worker string) {
	m.PanicsRecovered.WithLabelValues(worker).Inc()
}

// RecoveredPanicHook 挂到 recovery.OnPanic 上，按 worker 统计被吞掉的 panic
func RecoveredPanicHook(name string, _ interface{}, _ string) {
	GetMetrics().RecordRecoveredPanic(name)
}

// RecordShutdownForced records a forced drainer cancellation
func (m *Metrics) RecordShutdownForced() {
	m.ShutdownForced.Inc()
}

// RecordStartTime records the store start time
func (m *Metrics) RecordStartTime() {
	m.StartTime.SetToCurrentTime()
}
