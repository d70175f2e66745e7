package infra

import (
	"context"
	"sync"
	"time"

	"pixelplace/place/domain"

	"golang.org/x/time/rate"
)

// LimiterStore é um token-bucket (x/time/rate) por cliente com limpeza
// periódica das chaves inativas. Protege o servidor de flood de requisições;
// o cooldown de colocação é outra regra (application.Cooldown).
type LimiterStore struct {
	mu           sync.Mutex
	entries      map[domain.ClientID]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type limiterEntry struct {
	lim      *tokenBucket
	lastSeen time.Time
}

// tokenBucket expõe quando o próximo token chega, para o Retry-After.
type tokenBucket struct {
	*rate.Limiter
}

func (b *tokenBucket) NextTokenIn() time.Duration {
	tokens := b.Tokens()
	if tokens >= 1 {
		return 0
	}
	lim := b.Limit()
	if lim <= 0 || lim == rate.Inf {
		return 0
	}
	return time.Duration((1 - tokens) / float64(lim) * float64(time.Second))
}

var _ domain.LimiterStore = (*LimiterStore)(nil)

type LimiterOption func(*LimiterStore)

func WithIdleTTL(d time.Duration) LimiterOption {
	return func(s *LimiterStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) LimiterOption {
	return func(s *LimiterStore) { s.cleanupEvery = d }
}

func NewLimiterStore(rps float64, burst int, opts ...LimiterOption) *LimiterStore {
	s := &LimiterStore{
		entries:      make(map[domain.ClientID]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LimiterStore) RPS() float64 { return float64(s.rps) }
func (s *LimiterStore) Burst() int   { return s.burst }

// Get implementa domain.LimiterStore.
func (s *LimiterStore) Get(id domain.ClientID) domain.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[id]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := &tokenBucket{Limiter: rate.NewLimiter(s.rps, s.burst)}
	s.entries[id] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *LimiterStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa clientes inativos periodicamente.
// Pare cancelando o contexto.
func (s *LimiterStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
