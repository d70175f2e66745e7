package domain

import (
	"context"
	"image"
)

// Renderer regenera os artefatos derivados do canvas.
//
// As implementações devem substituir o artefato de forma atômica: em caso de
// falha o artefato anterior continua intacto.
type Renderer interface {
	RenderStill(ctx context.Context, img image.Image) error
	RenderTimelapse(ctx context.Context, src SnapshotSource) error
}
