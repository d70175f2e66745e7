package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pixelplace/place/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore conta outcomes em hashes do Redis:
//
//   - <prefix>:total               campo = outcome (cumulativo, não expira)
//   - <prefix>:minute:<yyyymmddhhmm> campo = outcome (expira após ttl)
//   - <prefix>:client:<id>          campo = outcome (só com trackClients)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por cliente.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackClients bool
}

var (
	_ domain.StatsStore  = (*RedisStatsStore)(nil)
	_ domain.StatsReader = (*RedisStatsStore)(nil)
)

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackClients(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackClients = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "pixelplace:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := ev.Outcome.String()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackClients && ev.Client != "" {
		clientKey := s.prefix + ":client:" + string(ev.Client)
		pipe.HIncrBy(ctx, clientKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, clientKey, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals lê <prefix>:total. Campos desconhecidos (ex.: de outra versão) são ignorados.
func (s *RedisStatsStore) Totals(ctx context.Context) (domain.OutcomeCounts, error) {
	out := make(domain.OutcomeCounts)
	if s == nil || s.rdb == nil {
		return out, nil
	}

	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return nil, fmt.Errorf("read stats totals: %w", err)
	}
	for field, v := range vals {
		o, ok := domain.ParseOutcome(field)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats total %s: %w", field, err)
		}
		out[o] = n
	}
	return out, nil
}
