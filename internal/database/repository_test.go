package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*sqlx.DB, Options) {
	t.Helper()
	opts := Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "nested", "ticks.db")}
	db, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSchema(context.Background(), db))
	return db, opts
}

func TestOpen_CreatesDirAndUsesWAL(t *testing.T) {
	db, opts := openTestStore(t)

	assert.True(t, StoreExists(opts))
	var mode string
	require.NoError(t, db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestStoreExists_MissingFile(t *testing.T) {
	opts := Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "absent.db")}
	assert.False(t, StoreExists(opts))
	_, err := os.Stat(opts.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestInitSchema_Idempotent(t *testing.T) {
	db, _ := openTestStore(t)
	require.NoError(t, InitSchema(context.Background(), db))

	var idx int
	require.NoError(t, db.Get(&idx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_ticks_symbol_ts'"))
	assert.Equal(t, 1, idx)
}

func TestFetchRecent_NewestFirstAndBounded(t *testing.T) {
	db, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, InsertTick(ctx, db, "AAA", "t1", 10, 1))
	require.NoError(t, InsertTick(ctx, db, "AAA", "t2", 11, 1))
	require.NoError(t, InsertTick(ctx, db, "BBB", "t3", 5, 2))

	rows, err := FetchRecent(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "t3", rows[0].TS)
	assert.Equal(t, "t2", rows[1].TS)

	rows, err = FetchRecent(ctx, db, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchRecent_NullSizeReadsAsZero(t *testing.T) {
	db, _ := openTestStore(t)
	_, err := db.Exec("INSERT INTO ticks (symbol, ts, price) VALUES ('CCC', 't9', 1.5)")
	require.NoError(t, err)

	rows, err := FetchRecent(context.Background(), db, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Size)
}
