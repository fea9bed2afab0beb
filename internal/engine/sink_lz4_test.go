package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickstore/internal/models"
)

func TestArchiveSink_RecordsRawTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "ticks.jsonl.lz4")
	sink, err := NewArchiveSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteBatch(context.Background(), []models.Tick{
		models.NewTick("AAA", "t1", 10, 1),
		{Symbol: "BBB", TS: "t2", Price: "oops"},
	}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	// writes after close are ignored
	require.NoError(t, sink.WriteBatch(context.Background(), []models.Tick{models.NewTick("CCC", "t3", 1, 1)}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []ArchiveRecord
	sc := bufio.NewScanner(lz4.NewReader(f))
	for sc.Scan() {
		var rec ArchiveRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, sc.Err())

	assert.Equal(t, []ArchiveRecord{
		{Symbol: "AAA", TS: "t1", Price: "10", Size: "1"},
		{Symbol: "BBB", TS: "t2", Price: "oops", Size: "0.0"},
	}, got)
	assert.Equal(t, path, sink.Path())
}
