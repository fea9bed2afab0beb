package monitor

import (
	"sync"
	"time"
)

const windowSeconds = 5

// RateMonitor implements a sliding window (5s) of per-second buckets for
// deterministic rows-per-second reporting.
type RateMonitor struct {
	buckets    [windowSeconds]int
	currentPos int
	lastTick   time.Time
	now        func() time.Time
	mu         sync.Mutex
}

func NewRateMonitor() *RateMonitor {
	return newRateMonitor(time.Now)
}

func newRateMonitor(now func() time.Time) *RateMonitor {
	return &RateMonitor{lastTick: now(), now: now}
}

// Record adds count to the current second bucket.
func (m *RateMonitor) Record(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()
	m.buckets[m.currentPos] += count
}

// Rate returns the average per-second count over the window.
func (m *RateMonitor) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked()

	sum := 0
	for _, b := range m.buckets {
		sum += b
	}
	return float64(sum) / windowSeconds
}

// advanceLocked 按经过的整秒数推进窗口并清空过期桶
func (m *RateMonitor) advanceLocked() {
	now := m.now()
	elapsed := int(now.Sub(m.lastTick) / time.Second)
	if elapsed < 1 {
		return
	}
	if elapsed >= windowSeconds {
		m.buckets = [windowSeconds]int{}
		m.currentPos = 0
	} else {
		for i := 0; i < elapsed; i++ {
			m.currentPos = (m.currentPos + 1) % windowSeconds
			m.buckets[m.currentPos] = 0
		}
	}
	m.lastTick = m.lastTick.Add(time.Duration(elapsed) * time.Second)
}
