package models

import "context"

// TickProducer is implemented by anything that accepts ticks for persistence.
// Market-data collectors depend on this, never on the store itself.
type TickProducer interface {
	Enqueue(t Tick)
}

// RecentReader is the read side consumed by analytics and alerting.
type RecentReader interface {
	FetchRecent(ctx context.Context, limit int) ([]RecentTick, error)
}
