package domain

import (
	"errors"
	"image"
)

// ErrStorage marca falhas de persistência (canvas, snapshot, registro de cliente
// ou artefato). Use errors.Is(err, ErrStorage).
var ErrStorage = errors.New("storage failure")

// CanvasStore é a imagem autoritativa + histórico de snapshots.
//
// SetPixel altera a memória, grava o canvas inteiro e depois adiciona um snapshot.
// Se alguma gravação falhar o erro volta embrulhando ErrStorage e a memória
// continua alterada.
type CanvasStore interface {
	Side() int
	Pixel(col, row int) RGB
	SetPixel(col, row int, c RGB) error
	SnapshotCount() int
	// Image devolve uma cópia do canvas atual.
	Image() image.Image
	SnapshotSource
}

// SnapshotSource percorre o histórico em ordem de criação.
type SnapshotSource interface {
	EachSnapshot(fn func(img image.Image) error) error
}
