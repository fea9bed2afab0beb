package engine

import (
	"log/slog"
	"sync"
	"syscall"
	"time"
)

// FreeSpacePercent returns the percentage of free space on the disk containing path.
func FreeSpacePercent(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}

	// #nosec G115 - Bsize is safe for uint64 conversion
	free := stat.Bavail * uint64(stat.Bsize)
	// #nosec G115
	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	return (float64(free) / float64(total)) * 100, nil
}

// DiskGuard 空间不足时挂起镜像写入，空间恢复后自动解除
type DiskGuard struct {
	dir        string
	minPercent float64
	interval   time.Duration
	probe      func(string) (float64, error)

	mu        sync.Mutex
	lastCheck time.Time
	suspended bool
}

func NewDiskGuard(dir string, minPercent float64) *DiskGuard {
	return &DiskGuard{
		dir:        dir,
		minPercent: minPercent,
		interval:   5 * time.Second,
		probe:      FreeSpacePercent,
	}
}

// Allow reports whether a write may proceed. A zero threshold disables the guard.
func (g *DiskGuard) Allow() bool {
	if g == nil || g.minPercent <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastCheck.IsZero() && time.Since(g.lastCheck) < g.interval {
		return !g.suspended
	}
	g.lastCheck = time.Now()

	free, err := g.probe(g.dir)
	if err != nil {
		// 获取失败时假设空间足够，由写入本身报错
		return !g.suspended
	}
	was := g.suspended
	g.suspended = free < g.minPercent
	if g.suspended && !was {
		Logger.Error("mirror_storage_quota_exceeded",
			slog.Float64("free_percent", free),
			slog.String("dir", g.dir),
			slog.String("action", "suspending_mirror"))
	} else if !g.suspended && was {
		Logger.Info("mirror_storage_recovered", slog.Float64("free_percent", free))
	}
	return !g.suspended
}
