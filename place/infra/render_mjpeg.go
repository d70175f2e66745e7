package infra

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"pixelplace/place/domain"

	"github.com/icza/mjpeg"
	"golang.org/x/image/draw"
)

// VideoMimeType é o tipo dos artefatos gerados (Motion-JPEG em AVI).
const VideoMimeType = "video/x-msvideo"

// MJPEGRenderer gera o vídeo still (1 frame) e o timelapse (1 frame por snapshot).
//
// Os frames são ampliados por um fator inteiro com vizinho mais próximo
// (sem blur). Cada artefato é escrito num temporário e renomeado por cima do
// anterior; em falha o artefato antigo continua lá.
type MJPEGRenderer struct {
	stillPath     string
	timelapsePath string

	scale        int
	stillFPS     int
	timelapseFPS int
	quality      int
}

var _ domain.Renderer = (*MJPEGRenderer)(nil)

type RenderOption func(*MJPEGRenderer)

func WithScale(n int) RenderOption {
	return func(r *MJPEGRenderer) { r.scale = n }
}

func WithFrameRates(still, timelapse int) RenderOption {
	return func(r *MJPEGRenderer) {
		r.stillFPS = still
		r.timelapseFPS = timelapse
	}
}

func WithJPEGQuality(q int) RenderOption {
	return func(r *MJPEGRenderer) { r.quality = q }
}

func NewMJPEGRenderer(stillPath, timelapsePath string, opts ...RenderOption) *MJPEGRenderer {
	r := &MJPEGRenderer{
		stillPath:     stillPath,
		timelapsePath: timelapsePath,
		scale:         4,
		stillFPS:      1,
		timelapseFPS:  4,
		quality:       95,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scale <= 0 {
		r.scale = 1
	}
	if r.stillFPS <= 0 {
		r.stillFPS = 1
	}
	if r.timelapseFPS <= 0 {
		r.timelapseFPS = 1
	}
	if r.quality <= 0 || r.quality > 100 {
		r.quality = jpeg.DefaultQuality
	}
	return r
}

func (r *MJPEGRenderer) StillPath() string     { return r.stillPath }
func (r *MJPEGRenderer) TimelapsePath() string { return r.timelapsePath }

func (r *MJPEGRenderer) RenderStill(ctx context.Context, img image.Image) error {
	err := r.encode(ctx, r.stillPath, r.stillFPS, func(add func(image.Image) error) error {
		return add(img)
	})
	if err != nil {
		return fmt.Errorf("%w: render still: %w", domain.ErrStorage, err)
	}
	return nil
}

// RenderTimelapse reconstrói o vídeo inteiro a partir do histórico.
// Histórico vazio não gera arquivo (o timelapse anterior, se houver, fica).
func (r *MJPEGRenderer) RenderTimelapse(ctx context.Context, src domain.SnapshotSource) error {
	if err := r.encode(ctx, r.timelapsePath, r.timelapseFPS, src.EachSnapshot); err != nil {
		return fmt.Errorf("%w: render timelapse: %w", domain.ErrStorage, err)
	}
	return nil
}

func (r *MJPEGRenderer) encode(ctx context.Context, dst string, fps int, frames func(add func(image.Image) error) error) error {
	var (
		aw     mjpeg.AviWriter
		tmp    string
		bounds image.Rectangle
		buf    bytes.Buffer
	)
	abort := func() {
		if aw != nil {
			_ = aw.Close()
		}
		if tmp != "" {
			_ = os.Remove(tmp)
		}
	}

	add := func(img image.Image) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if aw == nil {
			b := img.Bounds()
			bounds = image.Rect(0, 0, b.Dx()*r.scale, b.Dy()*r.scale)

			name, err := reserveTemp(dst)
			if err != nil {
				return err
			}
			tmp = name

			w, err := mjpeg.New(tmp, int32(bounds.Dx()), int32(bounds.Dy()), int32(fps))
			if err != nil {
				return err
			}
			aw = w
		}

		frame := image.NewRGBA(bounds)
		draw.NearestNeighbor.Scale(frame, bounds, img, img.Bounds(), draw.Src, nil)

		buf.Reset()
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: r.quality}); err != nil {
			return err
		}
		return aw.AddFrame(buf.Bytes())
	}

	if err := frames(add); err != nil {
		abort()
		return err
	}
	if aw == nil {
		return nil
	}

	err := aw.Close()
	aw = nil
	if err != nil {
		abort()
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		abort()
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		abort()
		return err
	}
	return nil
}
