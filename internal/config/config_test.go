package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PROJECTD_LISTEN_ADDR", "PROJECTD_DB_PATH", "PROJECTD_LOG_LEVEL",
		"PROJECTD_OUTBOX_INTERVAL", "PROJECTD_OUTBOX_BATCH", "PROJECTD_SEED_DEMO",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DBPath != "projectd.db" {
		t.Errorf("DBPath = %q, want projectd.db", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.DrainInterval != 2*time.Second {
		t.Errorf("DrainInterval = %v, want 2s", cfg.DrainInterval)
	}
	if cfg.DrainBatch != 25 {
		t.Errorf("DrainBatch = %d, want 25", cfg.DrainBatch)
	}
	if cfg.SeedDemo {
		t.Error("SeedDemo = true, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROJECTD_LISTEN_ADDR", ":9090")
	t.Setenv("PROJECTD_DB_PATH", "/tmp/test.db")
	t.Setenv("PROJECTD_LOG_LEVEL", "debug")
	t.Setenv("PROJECTD_OUTBOX_INTERVAL", "500ms")
	t.Setenv("PROJECTD_OUTBOX_BATCH", "50")
	t.Setenv("PROJECTD_SEED_DEMO", "true")

	cfg := Load()
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want /tmp/test.db", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.DrainInterval != 500*time.Millisecond {
		t.Errorf("DrainInterval = %v, want 500ms", cfg.DrainInterval)
	}
	if cfg.DrainBatch != 50 {
		t.Errorf("DrainBatch = %d, want 50", cfg.DrainBatch)
	}
	if !cfg.SeedDemo {
		t.Error("SeedDemo = false, want true")
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("PROJECTD_OUTBOX_INTERVAL", "not-a-duration")
	t.Setenv("PROJECTD_OUTBOX_BATCH", "-3")
	t.Setenv("PROJECTD_LOG_LEVEL", "loud")

	cfg := Load()
	if cfg.DrainInterval != 2*time.Second {
		t.Errorf("DrainInterval = %v, want default 2s", cfg.DrainInterval)
	}
	if cfg.DrainBatch != 25 {
		t.Errorf("DrainBatch = %d, want default 25", cfg.DrainBatch)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want default info", cfg.LogLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
