package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"pixelplace/internal/config"
	"pixelplace/place/domain"
	"pixelplace/place/infra"

	"github.com/redis/go-redis/v9"
)

// runtime agrupa as dependências abertas a partir da Config.
type runtime struct {
	cfg      config.Config
	canvas   *infra.FileCanvas
	renderer *infra.MJPEGRenderer
	clients  domain.ClientStore
	stats    domain.StatsStore
	totals   domain.StatsReader

	closers []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Printf("close error: %v", err)
		}
	}
	rt.closers = nil
}

// openCanvas abre só o canvas e o renderer (usado também pelo render offline).
func openCanvas(cfg config.Config) (*runtime, error) {
	canvas, err := infra.OpenFileCanvas(cfg.CanvasPath, cfg.SnapshotDir, cfg.CanvasSize)
	if err != nil {
		return nil, fmt.Errorf("open canvas: %w", err)
	}
	return &runtime{
		cfg:    cfg,
		canvas: canvas,
		renderer: infra.NewMJPEGRenderer(
			cfg.VideoPath,
			cfg.TimelapsePath,
			infra.WithScale(cfg.UpscaleFactor),
			infra.WithFrameRates(cfg.StillFPS, cfg.TimelapseFPS),
			infra.WithJPEGQuality(cfg.JPEGQuality),
		),
	}, nil
}

// openRuntime abre canvas, store de clientes e estatísticas.
func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt, err := openCanvas(cfg)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rt.closers = append(rt.closers, rdb.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	switch cfg.ClientStore {
	case config.ClientStoreRedis:
		rt.clients = infra.NewRedisClientStore(rdb, infra.WithClientPrefix(cfg.RedisPrefix))
	case config.ClientStoreSQLite:
		db, err := infra.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		store, err := infra.NewSQLiteClientStore(db)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.clients = store
	default:
		store, err := infra.NewFileClientStore(cfg.ClientDir)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.clients = store
	}

	switch cfg.StatsBackend {
	case config.StatsMemory:
		mem := infra.NewMemoryStatsStore(infra.WithTrackClients(cfg.StatsTrackClients))
		rt.stats, rt.totals = mem, mem
	case config.StatsRedis:
		rs := infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RedisPrefix+":stats"),
			infra.WithStatsTTL(cfg.StatsTTL),
			infra.WithStatsBucket(cfg.StatsBucket),
			infra.WithStatsTrackClients(cfg.StatsTrackClients),
		)
		rt.stats, rt.totals = rs, rs
	}

	return rt, nil
}
