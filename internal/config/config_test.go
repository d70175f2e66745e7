package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CanvasSize != 64 || cfg.TimelapseEvery != 10 || cfg.UpscaleFactor != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Cooldown() != 30*time.Second {
		t.Fatalf("expected 30s cooldown, got %s", cfg.Cooldown())
	}
	if cfg.ClientStore != ClientStoreFile || cfg.StatsBackend != StatsNone {
		t.Fatalf("unexpected backends %q/%q", cfg.ClientStore, cfg.StatsBackend)
	}
	if cfg.StatsBucket != StatsBucketMinute {
		t.Fatalf("expected minute stats bucket, got %q", cfg.StatsBucket)
	}
	if cfg.StillFPS != 1 || cfg.TimelapseFPS != 4 {
		t.Fatalf("unexpected frame rates %d/%d", cfg.StillFPS, cfg.TimelapseFPS)
	}
}

func TestLoad_CooldownBelowOneDisables(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("COOLDOWN_SECONDS", v)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Cooldown() != 0 {
			t.Fatalf("COOLDOWN_SECONDS=%s: expected disabled, got %s", v, cfg.Cooldown())
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CANVAS_SIZE", "16")
	t.Setenv("CLIENT_STORE", " Redis ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CONCURRENCY_TIMEOUT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CanvasSize != 16 || cfg.ClientStore != ClientStoreRedis || !cfg.UsesRedis() {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ConcurrencyTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected timeout %s", cfg.ConcurrencyTimeout)
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CANVAS_SIZE", "big")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"size":        {"CANVAS_SIZE": "0"},
		"cadence":     {"TIMELAPSE_EVERY": "0"},
		"scale":       {"UPSCALE_FACTOR": "-1"},
		"quality":     {"JPEG_QUALITY": "101"},
		"store":       {"CLIENT_STORE": "mongo"},
		"stats":       {"STATS_BACKEND": "prometheus"},
		"bucket":      {"STATS_BUCKET": "hour"},
		"redis addr":  {"STATS_BACKEND": "redis"},
		"rate":        {"RATE_RPS": "0"},
		"concurrency": {"CONCURRENCY_MAX": "-1"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
