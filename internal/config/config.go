// Package config carrega a configuração do pixelplace a partir de variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ClientStoreFile   = "file"
	ClientStoreRedis  = "redis"
	ClientStoreSQLite = "sqlite"

	StatsNone   = "none"
	StatsMemory = "memory"
	StatsRedis  = "redis"

	StatsBucketMinute = "minute"
	StatsBucketNone   = "none"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":5000"`

	CanvasSize int `env:"CANVAS_SIZE" envDefault:"64"`
	// valores < 1 desativam o cooldown
	CooldownSeconds int `env:"COOLDOWN_SECONDS" envDefault:"30"`
	TimelapseEvery  int `env:"TIMELAPSE_EVERY" envDefault:"10"`
	UpscaleFactor   int `env:"UPSCALE_FACTOR" envDefault:"4"`
	StillFPS        int `env:"STILL_FPS" envDefault:"1"`
	TimelapseFPS    int `env:"TIMELAPSE_FPS" envDefault:"4"`
	JPEGQuality     int `env:"JPEG_QUALITY" envDefault:"95"`

	CanvasPath    string `env:"CANVAS_PATH" envDefault:"canvas.png"`
	SnapshotDir   string `env:"SNAPSHOT_DIR" envDefault:"backups"`
	VideoPath     string `env:"VIDEO_PATH" envDefault:"canvas.avi"`
	TimelapsePath string `env:"TIMELAPSE_PATH" envDefault:"timelapse.avi"`

	ClientStore   string `env:"CLIENT_STORE" envDefault:"file"`
	ClientDir     string `env:"CLIENT_DIR" envDefault:"data"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"pixelplace"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"pixelplace.db"`

	StatsBackend      string        `env:"STATS_BACKEND" envDefault:"none"`
	StatsTTL          time.Duration `env:"STATS_TTL" envDefault:"24h"`
	StatsBucket       string        `env:"STATS_BUCKET" envDefault:"minute"`
	StatsTrackClients bool          `env:"STATS_TRACK_CLIENTS" envDefault:"false"`

	TrustXFF bool `env:"TRUST_XFF" envDefault:"false"`

	RateEnabled        bool          `env:"RATE_ENABLED" envDefault:"true"`
	RateRPS            float64       `env:"RATE_RPS" envDefault:"5"`
	RateBurst          int           `env:"RATE_BURST" envDefault:"10"`
	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"32"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"5s"`
}

// Cooldown converte COOLDOWN_SECONDS; valores < 1 viram 0 (desligado).
func (c Config) Cooldown() time.Duration {
	if c.CooldownSeconds < 1 {
		return 0
	}
	return time.Duration(c.CooldownSeconds) * time.Second
}

// UsesRedis indica se algum componente precisa de REDIS_ADDR.
func (c Config) UsesRedis() bool {
	return c.ClientStore == ClientStoreRedis || c.StatsBackend == StatsRedis
}

// Load lê o ambiente e valida o resultado.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.ClientStore = strings.ToLower(strings.TrimSpace(cfg.ClientStore))
	cfg.StatsBackend = strings.ToLower(strings.TrimSpace(cfg.StatsBackend))
	cfg.StatsBucket = strings.ToLower(strings.TrimSpace(cfg.StatsBucket))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.CanvasSize <= 0 {
		return errors.New("CANVAS_SIZE must be > 0")
	}
	if c.TimelapseEvery <= 0 {
		return errors.New("TIMELAPSE_EVERY must be > 0")
	}
	if c.UpscaleFactor <= 0 {
		return errors.New("UPSCALE_FACTOR must be > 0")
	}
	if c.StillFPS <= 0 || c.TimelapseFPS <= 0 {
		return errors.New("STILL_FPS and TIMELAPSE_FPS must be > 0")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.New("JPEG_QUALITY must be in [1, 100]")
	}

	switch c.ClientStore {
	case ClientStoreFile, ClientStoreRedis, ClientStoreSQLite:
	default:
		return fmt.Errorf("CLIENT_STORE must be one of file, redis, sqlite; got %q", c.ClientStore)
	}
	switch c.StatsBackend {
	case StatsNone, StatsMemory, StatsRedis:
	default:
		return fmt.Errorf("STATS_BACKEND must be one of none, memory, redis; got %q", c.StatsBackend)
	}
	switch c.StatsBucket {
	case StatsBucketMinute, StatsBucketNone:
	default:
		return fmt.Errorf("STATS_BUCKET must be minute or none; got %q", c.StatsBucket)
	}
	if c.UsesRedis() && strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("REDIS_ADDR is required when CLIENT_STORE=redis or STATS_BACKEND=redis")
	}

	if c.RateEnabled {
		if c.RateRPS <= 0 {
			return errors.New("RATE_RPS must be > 0")
		}
		if c.RateBurst <= 0 {
			return errors.New("RATE_BURST must be > 0")
		}
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}
