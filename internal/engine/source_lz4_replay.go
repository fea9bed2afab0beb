package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"tickstore/internal/limiter"
	"tickstore/internal/models"
)

// ArchiveReplay 读取 ArchiveSink 录制的 LZ4 JSONL，把 tick 重新交给 producer
type ArchiveReplay struct {
	file      *os.File
	scanner   *bufio.Scanner
	path      string
	totalSize int64
	limiter   *limiter.RateLimiter

	replayed int
	corrupt  int
}

// NewArchiveReplay opens an archive. rl throttles replay; nil replays at full speed.
func NewArchiveReplay(path string, rl *limiter.RateLimiter) (*ArchiveReplay, error) {
	// #nosec G304 - path is from controlled configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	scanner := bufio.NewScanner(lz4.NewReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &ArchiveReplay{
		file:      f,
		scanner:   scanner,
		path:      path,
		totalSize: fi.Size(),
		limiter:   rl,
	}, nil
}

// GetProgress 通过底层文件指针位置估算压缩流进度
func (r *ArchiveReplay) GetProgress() float64 {
	if r.totalSize == 0 {
		return 0
	}
	pos, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return float64(pos) / float64(r.totalSize) * 100
}

// Run feeds every archived tick to producer in recorded order.
// Lines that do not decode are counted and skipped.
func (r *ArchiveReplay) Run(ctx context.Context, producer models.TickProducer) (int, error) {
	for r.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return r.replayed, err
		}
		var rec ArchiveRecord
		if err := json.Unmarshal(r.scanner.Bytes(), &rec); err != nil {
			r.corrupt++
			continue
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return r.replayed, err
			}
		}
		producer.Enqueue(rec.Tick())
		r.replayed++
	}
	if err := r.scanner.Err(); err != nil {
		return r.replayed, fmt.Errorf("read archive %s: %w", r.path, err)
	}

	Logger.Info("🎬 Archive replay finished",
		"path", r.path,
		"replayed", r.replayed,
		"corrupt_lines", r.corrupt)
	return r.replayed, nil
}

func (r *ArchiveReplay) Close() error {
	return r.file.Close()
}

// Tick converts the record back to the producer form.
func (rec ArchiveRecord) Tick() models.Tick {
	size := models.RawValue(rec.Size)
	if rec.Size == "0.0" {
		size = ""
	}
	return models.Tick{Symbol: rec.Symbol, TS: rec.TS, Price: models.RawValue(rec.Price), Size: size}
}
