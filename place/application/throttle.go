package application

import (
	"context"
	"time"

	"pixelplace/place/domain"
)

// Throttle decide se uma requisição passa pelo limite de flood, sem saber
// nada sobre HTTP (headers/status).
//
// RetryAfter é usado quando o limiter não sabe estimar a recarga.
type Throttle struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

type refillEstimator interface {
	NextTokenIn() time.Duration
}

func (s Throttle) Decide(id domain.ClientID) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}

	lim := s.Store.Get(id)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}

	retry := s.RetryAfter
	if est, ok := lim.(refillEstimator); ok {
		if d := est.NextTokenIn(); d > 0 {
			retry = d
		}
	}
	if retry <= 0 {
		retry = time.Second
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}
}

// Slots dá a cada requisição no máximo AcquireTimeout para conseguir vaga.
// Sem timeout (<= 0) a espera dura o quanto durar o ctx da requisição.
type Slots struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

func (s Slots) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}
	return s.Pool.Acquire(ctx)
}
