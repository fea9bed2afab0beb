package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Queue overflow policies.
const (
	OverflowDropNewest = "drop_newest"
	OverflowDropOldest = "drop_oldest"
)

type Config struct {
	StoreDriver string // sqlite3 | pgx
	StorePath   string // sqlite 文件路径
	DatabaseURL string // pgx DSN
	MirrorDir   string
	ArchivePath string // 为空则不录制 lz4

	BatchSize    int
	PollInterval time.Duration
	DrainTimeout time.Duration
	BusyTimeout  time.Duration

	QueueCapacity        int // 0 = 无界
	OverflowPolicy       string
	MirrorMinFreePercent float64

	Port        string
	IngestRPS   int
	IngestBurst int
	LogLevel    string
	LogFormat   string
}

func Load() *Config {
	_ = godotenv.Load() // .env文件是可选的

	policy := strings.ToLower(getEnv("OVERFLOW_POLICY", OverflowDropNewest))
	if policy != OverflowDropNewest && policy != OverflowDropOldest {
		log.Printf("Invalid OVERFLOW_POLICY: %s, using %s", policy, OverflowDropNewest)
		policy = OverflowDropNewest
	}

	return &Config{
		StoreDriver:          getEnv("STORE_DRIVER", "sqlite3"),
		StorePath:            getEnv("STORE_PATH", "ticks.db"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MirrorDir:            getEnv("MIRROR_DIR", "csv_data"),
		ArchivePath:          getEnv("ARCHIVE_PATH", ""),
		BatchSize:            int(getEnvAsInt64("BATCH_SIZE", 200)),
		PollInterval:         getEnvAsMillis("POLL_INTERVAL_MS", 1000),
		DrainTimeout:         getEnvAsMillis("DRAIN_TIMEOUT_MS", 1000),
		BusyTimeout:          getEnvAsMillis("BUSY_TIMEOUT_MS", 1000),
		QueueCapacity:        int(getEnvAsInt64("QUEUE_CAPACITY", 0)),
		OverflowPolicy:       policy,
		MirrorMinFreePercent: getEnvAsFloat("MIRROR_MIN_FREE_PERCENT", 0),
		Port:                 getEnv("PORT", "8080"),
		IngestRPS:            int(getEnvAsInt64("INGEST_RPS", 0)),
		IngestBurst:          int(getEnvAsInt64("INGEST_BURST", 100)),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsMillis(key string, defaultMillis int64) time.Duration {
	return time.Duration(getEnvAsInt64(key, defaultMillis)) * time.Millisecond
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %g", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
