package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ClientID é o hash irreversível do endereço do cliente.
//
// Observação: clientes atrás do mesmo NAT compartilham o mesmo registro
// (e portanto o mesmo cooldown). É uma limitação conhecida, não um bug.
type ClientID string

// Identify é determinístico: o mesmo endereço sempre gera o mesmo ClientID.
func Identify(addr string) ClientID {
	sum := sha256.Sum256([]byte(addr))
	return ClientID(hex.EncodeToString(sum[:]))
}

// Epoch é o LastPlacement de um cliente que nunca colocou pixel ("sempre elegível").
var Epoch = time.Unix(0, 0).UTC()

// ClientRecord guarda a última cor escolhida e o instante da última colocação aceita.
type ClientRecord struct {
	Color         RGB
	LastPlacement time.Time
}

// DefaultClientRecord é o registro de um cliente ainda sem dados persistidos.
func DefaultClientRecord() ClientRecord {
	return ClientRecord{Color: Black, LastPlacement: Epoch}
}

// ClientStore persiste um registro por cliente.
//
// Update é uma transação read-modify-write restrita a um id: fn recebe o
// registro atual (ou o padrão) e o que ela deixar em *ClientRecord é gravado.
// Chamadas concorrentes para o mesmo id não podem se sobrescrever.
type ClientStore interface {
	Get(ctx context.Context, id ClientID) (ClientRecord, error)
	Update(ctx context.Context, id ClientID, fn func(*ClientRecord)) error
}

// SetColor grava a cor e preserva o timestamp.
func SetColor(ctx context.Context, s ClientStore, id ClientID, c RGB) error {
	return s.Update(ctx, id, func(r *ClientRecord) { r.Color = c })
}

// SetPlacementTime grava o timestamp e preserva a cor.
func SetPlacementTime(ctx context.Context, s ClientStore, id ClientID, t time.Time) error {
	return s.Update(ctx, id, func(r *ClientRecord) { r.LastPlacement = t })
}
