package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickstore/internal/config"
	"tickstore/internal/engine"
	"tickstore/internal/limiter"
	"tickstore/internal/recovery"
	"tickstore/internal/web"
)

var Version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("tickstore_exit", "err", err)
		os.Exit(1)
	}
}

func run() error {
	replayFile := flag.String("replay", "", "Archive to replay into the store on startup (.jsonl.lz4)")
	replayRPS := flag.Float64("replay-rps", 0, "Replay speed in ticks per second (0 for max speed)")
	flag.Parse()
	cfg := config.Load()
	engine.InitLogger(cfg.LogLevel, cfg.LogFormat)
	recovery.Logger = engine.Logger
	recovery.OnPanic = engine.RecoveredPanicHook
	slog.Info("🚀 Starting tickstore", "version", Version, "driver", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := engine.NewTickStore(engine.OptionsFromConfig(cfg))
	if err := store.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("tick_store_close_failed", "err", err)
		}
	}()

	rl := limiter.NewRateLimiter(float64(cfg.IngestRPS), cfg.IngestBurst)
	hub := web.NewHub(store, rl)
	go hub.Run(ctx)
	go broadcastStats(ctx, hub, store, rl)

	if *replayFile != "" {
		recovery.WithRecovery(func() {
			startReplay(ctx, *replayFile, *replayRPS, store)
		}, "archive_replay")
	}

	health := engine.NewHealthServer(store, cfg.MirrorDir, cfg.MirrorMinFreePercent)
	srv := NewServer(cfg.Port, store, store, rl, hub, health)

	errCh := make(chan error, 1)
	recovery.WithRecovery(func() {
		slog.Info("🌐 Server listening", "port", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}, "api_server")

	slog.Info("🏁 System Operational.")
	select {
	case <-ctx.Done():
		slog.Info("shutdown_signal_received")
	case err := <-errCh:
		slog.Error("api_server_failed", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_server_shutdown_failed", "err", err)
	}
	return nil
}

// broadcastStats 每秒把队列深度推给 ingest 客户端，便于生产者自行降速
// 限流参数一并下发，生产者据此拆帧 (单帧不能超过 ingest_burst)
func broadcastStats(ctx context.Context, hub *web.Hub, store *engine.TickStore, rl *limiter.RateLimiter) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Broadcast(web.WSEvent{Type: "stats", Data: statsSnapshot(store, rl)})
		}
	}
}

func statsSnapshot(store *engine.TickStore, rl *limiter.RateLimiter) map[string]interface{} {
	return map[string]interface{}{
		"queue_depth":  store.QueueLen(),
		"rows_per_sec": store.WriteRate(),
		"state":        store.State().String(),
		"ingest_rps":   rl.MaxRPS(),
		"ingest_burst": rl.Burst(),
	}
}

func startReplay(ctx context.Context, path string, rps float64, store *engine.TickStore) {
	var rl *limiter.RateLimiter
	if rps > 0 {
		rl = limiter.NewRateLimiter(rps, 1)
	}
	replay, err := engine.NewArchiveReplay(path, rl)
	if err != nil {
		slog.Error("❌ Replay archive open failed", "path", path, "err", err)
		return
	}
	defer replay.Close()

	slog.Info("🎬 Replaying archive", "path", path, "rps", rps)
	if _, err := replay.Run(ctx, store); err != nil {
		slog.Warn("replay_interrupted", "err", err, "progress", replay.GetProgress())
	}
}
