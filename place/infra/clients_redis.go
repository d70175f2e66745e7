package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pixelplace/place/domain"

	"github.com/redis/go-redis/v9"
)

// RedisClientStore guarda cada cliente num hash "<prefix>:client:<id>"
// com os campos "color" ("r,g,b") e "at" (segundos Unix com fração).
//
// Update é serializado por id dentro do processo e, entre processos, roda
// como transação otimista (WATCH/MULTI/EXEC): se outro processo alterar a
// chave no meio, a função é reaplicada sobre o valor novo.
type RedisClientStore struct {
	rdb   *redis.Client
	locks keyLocks

	prefix     string
	maxRetries int
}

var _ domain.ClientStore = (*RedisClientStore)(nil)

type RedisClientOption func(*RedisClientStore)

func WithClientPrefix(prefix string) RedisClientOption {
	return func(s *RedisClientStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithClientMaxRetries limita quantas vezes um WATCH que falhou é refeito.
func WithClientMaxRetries(n int) RedisClientOption {
	return func(s *RedisClientStore) { s.maxRetries = n }
}

func NewRedisClientStore(rdb *redis.Client, opts ...RedisClientOption) *RedisClientStore {
	s := &RedisClientStore{
		rdb:        rdb,
		prefix:     "pixelplace",
		maxRetries: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries <= 0 {
		s.maxRetries = 1
	}
	return s
}

func (s *RedisClientStore) Get(ctx context.Context, id domain.ClientID) (domain.ClientRecord, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("%w: read client %s: %w", domain.ErrStorage, id, err)
	}
	return decodeHash(id, vals)
}

// Update pode chamar fn mais de uma vez (uma por tentativa); fn deve só
// alterar o registro recebido.
func (s *RedisClientStore) Update(ctx context.Context, id domain.ClientID, fn func(*domain.ClientRecord)) error {
	key := s.key(id)

	unlock := s.locks.lock(key)
	defer unlock()

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		rec, err := decodeHash(id, vals)
		if err != nil {
			return err
		}
		fn(&rec)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"color", rec.Color.String(),
				"at", formatUnix(rec.LastPlacement),
			)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: update client %s: %w", domain.ErrStorage, id, err)
	}
	return fmt.Errorf("%w: update client %s: too many concurrent updates", domain.ErrStorage, id)
}

func (s *RedisClientStore) key(id domain.ClientID) string {
	return s.prefix + ":client:" + string(id)
}

func decodeHash(id domain.ClientID, vals map[string]string) (domain.ClientRecord, error) {
	rec := domain.DefaultClientRecord()
	if len(vals) == 0 {
		return rec, nil
	}
	if v, ok := vals["color"]; ok {
		c, err := domain.ParseTriple(v)
		if err != nil {
			return rec, fmt.Errorf("%w: decode client %s: %w", domain.ErrStorage, id, err)
		}
		rec.Color = c
	}
	if v, ok := vals["at"]; ok && v != "" {
		t, err := parseUnix(v)
		if err != nil {
			return rec, fmt.Errorf("%w: decode client %s: %w", domain.ErrStorage, id, err)
		}
		rec.LastPlacement = t
	}
	return rec, nil
}
