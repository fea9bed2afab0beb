package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickstore/internal/models"
)

func TestAuditMirror(t *testing.T) {
	db := newSQLiteStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	batch := []models.Tick{
		models.NewTick("aaa", "t1", 10, 1),
		models.NewTick("AAA", "t2", 11, 1),
		{Symbol: "BBB", TS: "t3", Price: "bad"},
		models.NewTick("CCC", "t4", 1, 1),
	}
	res := NewStoreSink(db).WriteBatch(ctx, batch)
	require.NoError(t, res.Err)

	// CCC never reached the mirror
	require.NoError(t, NewCSVMirror(dir, nil).WriteBatch(ctx, batch[:3]))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	audits, err := AuditMirror(ctx, db, dir)
	require.NoError(t, err)

	got := map[string]SymbolAudit{}
	for _, a := range audits {
		got[a.File] = a
	}
	assert.Equal(t, SymbolAudit{File: "AAA.csv", StoreRows: 2, MirrorRows: 2}, got["AAA.csv"])
	assert.Equal(t, SymbolAudit{File: "BBB.csv", StoreRows: 0, MirrorRows: 1}, got["BBB.csv"])
	assert.Equal(t, 1, got["CCC.csv"].Missing())
	assert.Equal(t, 3, got[AggregateFileName].StoreRows)
	assert.Equal(t, 3, got[AggregateFileName].MirrorRows)
	assert.Zero(t, got[AggregateFileName].Missing())
	assert.NotContains(t, got, "notes.txt")
}

func TestAuditMirror_MissingDir(t *testing.T) {
	db := newSQLiteStore(t)
	audits, err := AuditMirror(context.Background(), db, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, AggregateFileName, audits[0].File)
}
