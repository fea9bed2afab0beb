package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tickstore/internal/models"
)

// Mirror file names and metric targets.
const (
	AggregateFileName = "ticks_all.csv"

	MirrorTargetAggregate = "aggregate"
	MirrorTargetSymbol    = "symbol"
	MirrorTargetArchive   = "archive"
)

var mirrorHeader = []string{"symbol", "ts", "price", "size"}

var symbolFileReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_", ":", "_")

// CSVMirror 把批次追加到汇总文件和按 symbol 分的文件
// 每个文件独立保护：一个文件失败不影响其它文件
type CSVMirror struct {
	dir   string
	guard *DiskGuard
	mu    sync.Mutex
}

func NewCSVMirror(dir string, guard *DiskGuard) *CSVMirror {
	return &CSVMirror{dir: dir, guard: guard}
}

// Dir returns the mirror directory.
func (m *CSVMirror) Dir() string { return m.dir }

// SymbolPath returns the per-symbol file for sym.
func (m *CSVMirror) SymbolPath(sym string) string {
	return filepath.Join(m.dir, symbolFileName(sym)+".csv")
}

func (m *CSVMirror) WriteBatch(_ context.Context, batch []models.Tick) error {
	if len(batch) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.guard.Allow() {
		GetMetrics().RecordMirrorSuspended()
		return nil
	}

	var errs []error
	if err := appendCSV(filepath.Join(m.dir, AggregateFileName), batch); err != nil {
		GetMetrics().RecordMirrorError(MirrorTargetAggregate)
		LogMirrorError(MirrorTargetAggregate, err)
		errs = append(errs, err)
	}

	order, groups := groupBySymbol(batch)
	for _, sym := range order {
		if err := appendCSV(m.SymbolPath(sym), groups[sym]); err != nil {
			GetMetrics().RecordMirrorError(MirrorTargetSymbol)
			LogMirrorError(MirrorTargetSymbol, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *CSVMirror) Close() error { return nil }

// groupBySymbol keeps first-seen symbol order and per-symbol tick order.
func groupBySymbol(batch []models.Tick) ([]string, map[string][]models.Tick) {
	groups := make(map[string][]models.Tick)
	var order []string
	for _, t := range batch {
		sym := t.MirrorSymbol()
		if _, ok := groups[sym]; !ok {
			order = append(order, sym)
		}
		groups[sym] = append(groups[sym], t)
	}
	return order, groups
}

func appendCSV(path string, rows []models.Tick) (err error) {
	// #nosec G304 - path is built from the mirror dir and a sanitised symbol
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(mirrorHeader); err != nil {
			return fmt.Errorf("write header %s: %w", path, err)
		}
	}
	for _, t := range rows {
		if err := w.Write([]string{t.Symbol, t.TS, t.Price.String(), t.SizeText()}); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func symbolFileName(sym string) string {
	name := symbolFileReplacer.Replace(sym)
	if strings.Trim(name, ".") == "" {
		return strings.Repeat("_", len(name))
	}
	return name
}
