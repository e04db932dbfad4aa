package config

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123"

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"MARINDA_JWT_SECRET": testSecret})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "marinda.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "marinda.db")
	}
	if cfg.SweepSchedule != "@every 1m" {
		t.Errorf("sweep schedule = %q, want %q", cfg.SweepSchedule, "@every 1m")
	}
	if cfg.TokenTTL != 720*time.Hour {
		t.Errorf("token ttl = %v, want 720h", cfg.TokenTTL)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without VAPID keys")
	}
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"MARINDA_JWT_SECRET":     testSecret,
		"MARINDA_PORT":           "9090",
		"MARINDA_SWEEP_SCHEDULE": "*/5 * * * *",
		"MARINDA_LOG_FORMAT":     "json",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.SweepSchedule != "*/5 * * * *" {
		t.Errorf("sweep schedule = %q", cfg.SweepSchedule)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("log format = %q, want json", cfg.LogFormat)
	}
}

func TestLoadFromMissingSecret(t *testing.T) {
	if _, err := LoadFrom(map[string]string{}); err == nil {
		t.Fatal("expected error when MARINDA_JWT_SECRET is missing")
	}
}

func TestLoadFromShortSecret(t *testing.T) {
	if _, err := LoadFrom(map[string]string{"MARINDA_JWT_SECRET": "short"}); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestLoadFromBadSchedule(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"MARINDA_JWT_SECRET":     testSecret,
		"MARINDA_SWEEP_SCHEDULE": "every so often",
	})
	if err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestLoadFromHalfVAPID(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"MARINDA_JWT_SECRET":       testSecret,
		"MARINDA_VAPID_PUBLIC_KEY": "pub",
	})
	if err == nil {
		t.Fatal("expected error when only one VAPID key is set")
	}
}
