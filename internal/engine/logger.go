package engine

import (
	"io"
	"log/slog"
	"os"
)

// Logger 全局结构化日志器
var Logger = slog.Default()

// InitLogger 初始化结构化日志
func InitLogger(level, format string) {
	Logger = newLogger(os.Stdout, level, format)
	slog.SetDefault(Logger)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "text" {
		// 文本格式，便于开发调试
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogBatchDropped 记录整批丢弃
func LogBatchDropped(stage string, size int, err error) {
	Logger.Error("tick_batch_dropped",
		slog.String("stage", stage),
		slog.Int("batch_len", size),
		slog.String("error", err.Error()),
	)
}

// LogRowSkipped 记录单行跳过
func LogRowSkipped(reason, symbol, ts string, err error) {
	Logger.Warn("tick_row_skipped",
		slog.String("reason", reason),
		slog.String("symbol", symbol),
		slog.String("ts", ts),
		slog.String("error", err.Error()),
	)
}

// LogMirrorError 记录镜像写入失败
func LogMirrorError(target string, err error) {
	Logger.Warn("tick_mirror_write_failed",
		slog.String("target", target),
		slog.String("error", err.Error()),
	)
}
