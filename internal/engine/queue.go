package engine

import (
	"errors"
	"sync"
	"time"

	"tickstore/internal/models"
)

var (
	ErrQueueClosed = errors.New("tick queue closed")
	ErrQueueFull   = errors.New("tick queue full")
)

// Drop reasons reported on tickstore_enqueue_dropped_total.
const (
	DropReasonClosed  = "closed"
	DropReasonFull    = "full"
	DropReasonEvicted = "evicted"
)

// OverflowPolicy decides what a bounded queue does when it is full.
type OverflowPolicy int

const (
	DropNewest OverflowPolicy = iota
	DropOldest
)

// TickQueue 有序、并发安全的 FIFO 缓冲
// capacity <= 0 时无界；有界时按 policy 丢弃，永不阻塞生产者
type TickQueue struct {
	mu       sync.Mutex
	items    []models.Tick
	head     int
	capacity int
	policy   OverflowPolicy
	closed   bool

	notify chan struct{} // 容量 1 的唤醒信号
	done   chan struct{}
}

func NewTickQueue(capacity int, policy OverflowPolicy) *TickQueue {
	return &TickQueue{
		capacity: capacity,
		policy:   policy,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push appends t to the tail without blocking. err reports why t was not kept;
// evicted reports that DropOldest discarded the head to make room for t.
func (q *TickQueue) Push(t models.Tick) (evicted bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, ErrQueueClosed
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		if q.policy == DropNewest {
			q.mu.Unlock()
			return false, ErrQueueFull
		}
		q.items[q.head] = models.Tick{}
		q.head++
		q.compactLocked(q.capacity)
		evicted = true
	}
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return evicted, nil
}

// TryDequeue returns the head without waiting.
func (q *TickQueue) TryDequeue() (models.Tick, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// DequeueWait blocks up to timeout for the head item. It returns false on
// timeout or once the queue is closed and empty.
func (q *TickQueue) DequeueWait(timeout time.Duration) (models.Tick, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		t, ok := q.popLocked()
		closed := q.closed
		q.mu.Unlock()
		if ok {
			return t, true
		}
		if closed {
			return models.Tick{}, false
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-timer.C:
			return models.Tick{}, false
		}
	}
}

// Len returns the number of pending ticks.
func (q *TickQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Close stops intake. Ticks already queued can still be dequeued.
func (q *TickQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Closed reports whether Close has been called.
func (q *TickQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *TickQueue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *TickQueue) popLocked() (models.Tick, bool) {
	if q.head >= len(q.items) {
		return models.Tick{}, false
	}
	t := q.items[q.head]
	q.items[q.head] = models.Tick{}
	q.head++
	q.compactLocked(1024)
	return t, true
}

// compactLocked 回收已消费或已淘汰的前缀，避免底层数组无限增长
// 有界队列淘汰时以 capacity 为阈值，底层数组保持在 O(capacity)
func (q *TickQueue) compactLocked(minHead int) {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head >= minHead && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}
