package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4/v4"

	"tickstore/internal/models"
)

// ArchiveRecord is one JSONL line. Numbers stay as the producer sent them,
// so uncoercible ticks are recorded too.
type ArchiveRecord struct {
	Symbol string `json:"symbol"`
	TS     string `json:"ts"`
	Price  string `json:"price"`
	Size   string `json:"size"`
}

// ArchiveSink LZ4 压缩的 JSONL 录制，每批写完即 Flush
type ArchiveSink struct {
	file      *os.File
	lz4Writer *lz4.Writer
	mu        sync.Mutex
	path      string
	closed    bool
}

func NewArchiveSink(path string) (*ArchiveSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	// #nosec G304 - 录制路径由系统配置控制
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &ArchiveSink{
		file:      f,
		lz4Writer: lz4.NewWriter(f),
		path:      path,
	}, nil
}

func (s *ArchiveSink) Path() string { return s.path }

func (s *ArchiveSink) WriteBatch(_ context.Context, batch []models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	for _, t := range batch {
		data, err := json.Marshal(ArchiveRecord{Symbol: t.Symbol, TS: t.TS, Price: t.Price.String(), Size: t.SizeText()})
		if err != nil {
			continue
		}
		data = append(data, '\n')
		if _, err := s.lz4Writer.Write(data); err != nil {
			GetMetrics().RecordMirrorError(MirrorTargetArchive)
			LogMirrorError(MirrorTargetArchive, err)
			return fmt.Errorf("archive write: %w", err)
		}
	}

	if err := s.lz4Writer.Flush(); err != nil {
		GetMetrics().RecordMirrorError(MirrorTargetArchive)
		LogMirrorError(MirrorTargetArchive, err)
		return fmt.Errorf("archive flush: %w", err)
	}
	return nil
}

func (s *ArchiveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.lz4Writer.Close()
	return s.file.Close()
}
