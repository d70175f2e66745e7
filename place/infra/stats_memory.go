package infra

import (
	"context"
	"sync"

	"pixelplace/place/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento (STATS_BACKEND=memory loga o total no shutdown).
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu       sync.Mutex
	total    domain.OutcomeCounts
	byClient map[domain.ClientID]domain.OutcomeCounts

	trackClients bool
}

var (
	_ domain.StatsStore  = (*MemoryStatsStore)(nil)
	_ domain.StatsReader = (*MemoryStatsStore)(nil)
)

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackClients(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackClients = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:    make(domain.OutcomeCounts),
		byClient: make(map[domain.ClientID]domain.OutcomeCounts),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	if s.trackClients && ev.Client != "" {
		c := s.byClient[ev.Client]
		if c == nil {
			c = make(domain.OutcomeCounts)
			s.byClient[ev.Client] = c
		}
		c[ev.Outcome]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() domain.OutcomeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCounts(s.total)
}

func (s *MemoryStatsStore) Totals(context.Context) (domain.OutcomeCounts, error) {
	return s.Total(), nil
}

func (s *MemoryStatsStore) ByClient() map[domain.ClientID]domain.OutcomeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ClientID]domain.OutcomeCounts, len(s.byClient))
	for k, v := range s.byClient {
		out[k] = cloneCounts(v)
	}
	return out
}

func cloneCounts(in domain.OutcomeCounts) domain.OutcomeCounts {
	out := make(domain.OutcomeCounts, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
