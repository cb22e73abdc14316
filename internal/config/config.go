package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultDBPath        = "projectd.db"
	defaultDrainInterval = 2 * time.Second
	defaultDrainBatch    = 25

	envListenAddr    = "PROJECTD_LISTEN_ADDR"
	envDBPath        = "PROJECTD_DB_PATH"
	envLogLevel      = "PROJECTD_LOG_LEVEL"
	envDrainInterval = "PROJECTD_OUTBOX_INTERVAL"
	envDrainBatch    = "PROJECTD_OUTBOX_BATCH"
	envSeedDemo      = "PROJECTD_SEED_DEMO"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	LogLevel      slog.Level
	DrainInterval time.Duration
	DrainBatch    int
	SeedDemo      bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:    defaultListenAddr,
		DBPath:        defaultDBPath,
		LogLevel:      slog.LevelInfo,
		DrainInterval: defaultDrainInterval,
		DrainBatch:    defaultDrainBatch,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envDrainInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DrainInterval = d
		}
	}
	if v := os.Getenv(envDrainBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainBatch = n
		}
	}
	if v := os.Getenv(envSeedDemo); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SeedDemo = b
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
