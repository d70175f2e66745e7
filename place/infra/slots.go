package infra

import (
	"context"
	"sync"
	"sync/atomic"

	"pixelplace/place/domain"
)

// RequestSlots limita quantas requisições rodam ao mesmo tempo. Cada
// colocação aceita regrava o vídeo, então poucas vagas já bastam.
type RequestSlots struct {
	sem    chan struct{}
	inUse  atomic.Int64
	denied atomic.Int64
}

var _ domain.SlotPool = (*RequestSlots)(nil)

func NewRequestSlots(max int) *RequestSlots {
	if max < 1 {
		max = 1
	}
	return &RequestSlots{sem: make(chan struct{}, max)}
}

// Acquire espera uma vaga até o ctx encerrar. O release devolvido é
// idempotente: chamar duas vezes não libera duas vagas.
func (s *RequestSlots) Acquire(ctx context.Context) (func(), bool) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.denied.Add(1)
		return nil, false
	}
	s.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.inUse.Add(-1)
			<-s.sem
		})
	}, true
}

func (s *RequestSlots) Cap() int      { return cap(s.sem) }
func (s *RequestSlots) InUse() int    { return int(s.inUse.Load()) }
func (s *RequestSlots) Denied() int64 { return s.denied.Load() }
