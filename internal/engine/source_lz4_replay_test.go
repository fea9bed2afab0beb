package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickstore/internal/models"
)

type sliceProducer struct {
	mu    sync.Mutex
	ticks []models.Tick
}

func (p *sliceProducer) Enqueue(t models.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, t)
}

func TestArchiveReplay_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.jsonl.lz4")
	sink, err := NewArchiveSink(path)
	require.NoError(t, err)

	in := []models.Tick{
		models.NewTick("AAA", "t1", 10, 1),
		{Symbol: "BBB", TS: "t2", Price: "5"},
	}
	require.NoError(t, sink.WriteBatch(context.Background(), in[:1]))
	require.NoError(t, sink.WriteBatch(context.Background(), in[1:]))
	require.NoError(t, sink.Close())

	replay, err := NewArchiveReplay(path, nil)
	require.NoError(t, err)
	defer replay.Close()

	p := &sliceProducer{}
	n, err := replay.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, in, p.ticks)
	assert.Positive(t, replay.GetProgress())
}

func TestArchiveReplay_IntoTickStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticks.jsonl.lz4")
	sink, err := NewArchiveSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.WriteBatch(context.Background(), seqTicks(25)))
	require.NoError(t, sink.Close())

	s, _ := newTestTickStore(t)
	require.NoError(t, s.Start(context.Background()))

	replay, err := NewArchiveReplay(path, nil)
	require.NoError(t, err)
	defer replay.Close()
	n, err := replay.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	require.NoError(t, s.Close())

	rows, err := s.FetchRecent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, rows, 25)
	assert.Equal(t, "t0024", rows[0].TS)
}

func TestArchiveReplay_MissingFile(t *testing.T) {
	_, err := NewArchiveReplay(filepath.Join(t.TempDir(), "none.lz4"), nil)
	assert.Error(t, err)
}

func TestArchiveReplay_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.jsonl.lz4")
	sink, err := NewArchiveSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.WriteBatch(context.Background(), seqTicks(3)))
	require.NoError(t, sink.Close())

	replay, err := NewArchiveReplay(path, nil)
	require.NoError(t, err)
	defer replay.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := replay.Run(ctx, &sliceProducer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
