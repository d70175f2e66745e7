package domain

import (
	"context"
	"time"
)

// StatsEvent representa o resultado de uma requisição ao engine.
//
// Observação: guardar Client sem controle aumenta a cardinalidade
// (uma chave por cliente no Redis).
type StatsEvent struct {
	Client  ClientID
	Outcome Outcome
	At      time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de colocação.
//
// O engine trata erro como best-effort (não derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// OutcomeCounts conta requisições por Outcome.
type OutcomeCounts map[Outcome]int64

// StatsReader devolve os totais acumulados desde o início da contagem.
type StatsReader interface {
	Totals(ctx context.Context) (OutcomeCounts, error)
}
