package domain

import "context"

// Limiter decide se uma requisição pode passar agora (proteção contra flood,
// independente do cooldown de colocação).
//
// A camada de infra usa token-bucket (golang.org/x/time/rate).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por cliente.
type LimiterStore interface {
	Get(ClientID) Limiter
}

// SlotPool representa uma capacidade finita de requisições simultâneas.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
