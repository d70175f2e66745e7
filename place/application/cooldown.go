package application

import (
	"time"

	"pixelplace/place/domain"
)

// Cooldown concentra a regra de espera entre colocações aceitas.
//
// Threshold abaixo de 1s desliga a regra (comportamento herdado: "< 1 desativa").
type Cooldown struct {
	Threshold time.Duration
}

func (c Cooldown) Enabled() bool { return c.Threshold >= time.Second }

// Decide bloqueia enquanto now-last <= Threshold (a fronteira é estritamente maior).
func (c Cooldown) Decide(last, now time.Time) domain.Decision {
	if !c.Enabled() {
		return domain.Decision{Allowed: true}
	}

	elapsed := now.Sub(last)
	if elapsed > c.Threshold {
		return domain.Decision{Allowed: true}
	}

	remaining := c.Threshold - elapsed
	if remaining <= 0 {
		// exatamente na fronteira: ainda bloqueado
		remaining = time.Nanosecond
	}
	return domain.Decision{Allowed: false, RetryAfter: remaining}
}
