package engine

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickstore/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVMirror_HeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	m := NewCSVMirror(dir, nil)

	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{models.NewTick("aaa", "t1", 10, 1)}))
	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{{Symbol: "aaa", TS: "t2", Price: "11"}}))

	agg := readCSV(t, filepath.Join(dir, AggregateFileName))
	assert.Equal(t, [][]string{
		{"symbol", "ts", "price", "size"},
		{"aaa", "t1", "10", "1"},
		{"aaa", "t2", "11", "0.0"},
	}, agg)

	// per-symbol files are routed by the upper-cased symbol
	sym := readCSV(t, filepath.Join(dir, "AAA.csv"))
	assert.Equal(t, agg, sym)
}

func TestCSVMirror_GroupsBySymbolInOrder(t *testing.T) {
	dir := t.TempDir()
	m := NewCSVMirror(dir, nil)

	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{
		models.NewTick("BBB", "t1", 5, 2),
		models.NewTick("AAA", "t2", 10, 1),
		models.NewTick("bbb", "t3", 6, 2),
		{Symbol: "", TS: "t4", Price: "1"},
	}))

	bbb := readCSV(t, filepath.Join(dir, "BBB.csv"))
	require.Len(t, bbb, 3)
	assert.Equal(t, "t1", bbb[1][1])
	assert.Equal(t, "t3", bbb[2][1])

	assert.Len(t, readCSV(t, filepath.Join(dir, "AAA.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "UNKNOWN.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, AggregateFileName)), 5)
}

func TestCSVMirror_AggregateFailureKeepsSymbolFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, AggregateFileName), 0o755))
	m := NewCSVMirror(dir, nil)

	err := m.WriteBatch(context.Background(), []models.Tick{
		models.NewTick("AAA", "t1", 10, 1),
		models.NewTick("BBB", "t2", 5, 2),
	})
	assert.Error(t, err)

	assert.Len(t, readCSV(t, filepath.Join(dir, "AAA.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "BBB.csv")), 2)
}

func TestCSVMirror_SymbolFailureKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "AAA.csv"), 0o755))
	m := NewCSVMirror(dir, nil)

	err := m.WriteBatch(context.Background(), []models.Tick{
		models.NewTick("AAA", "t1", 10, 1),
		models.NewTick("BBB", "t2", 5, 2),
	})
	assert.Error(t, err)

	assert.Len(t, readCSV(t, filepath.Join(dir, AggregateFileName)), 3)
	assert.Len(t, readCSV(t, filepath.Join(dir, "BBB.csv")), 2)
}

func TestCSVMirror_SymbolCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	m := NewCSVMirror(dir, nil)

	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{
		models.NewTick("../evil", "t1", 1, 1),
		models.NewTick("..", "t2", 1, 1),
	}))

	assert.FileExists(t, filepath.Join(dir, ".._EVIL.csv"))
	assert.FileExists(t, filepath.Join(dir, "__.csv"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "EVIL.csv"))
}

func TestSymbolFileName(t *testing.T) {
	assert.Equal(t, "BTC_USD", symbolFileName("BTC/USD"))
	assert.Equal(t, "A_B", symbolFileName(`A\B`))
	assert.Equal(t, "___", symbolFileName("..."))
	assert.Equal(t, "ETHUSDT", symbolFileName("ETHUSDT"))
}

func TestCSVMirror_SuspendedWhenDiskLow(t *testing.T) {
	dir := t.TempDir()
	guard := NewDiskGuard(dir, 10)
	free := 5.0
	guard.probe = func(string) (float64, error) { return free, nil }
	guard.interval = 0
	m := NewCSVMirror(dir, guard)

	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{models.NewTick("AAA", "t1", 1, 1)}))
	assert.NoFileExists(t, filepath.Join(dir, AggregateFileName))

	free = 50
	time.Sleep(time.Millisecond)
	require.NoError(t, m.WriteBatch(context.Background(), []models.Tick{models.NewTick("AAA", "t2", 1, 1)}))
	assert.Len(t, readCSV(t, filepath.Join(dir, AggregateFileName)), 2)
}

func TestDiskGuard_DisabledAndNil(t *testing.T) {
	var g *DiskGuard
	assert.True(t, g.Allow())

	g = NewDiskGuard(t.TempDir(), 0)
	g.probe = func(string) (float64, error) { return 0, nil }
	assert.True(t, g.Allow())
}

func TestDiskGuard_CachesProbe(t *testing.T) {
	g := NewDiskGuard(t.TempDir(), 10)
	calls := 0
	g.probe = func(string) (float64, error) {
		calls++
		return 1, nil
	}
	assert.False(t, g.Allow())
	assert.False(t, g.Allow())
	assert.Equal(t, 1, calls)
}

func TestFreeSpacePercent(t *testing.T) {
	pct, err := FreeSpacePercent(t.TempDir())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
}
