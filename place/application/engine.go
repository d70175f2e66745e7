package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pixelplace/place/domain"
)

const DefaultTimelapseEvery = 10

// Result descreve o estado terminal de uma requisição.
type Result struct {
	Outcome domain.Outcome
	Col     int
	Row     int
	// Color é a cor escolhida (ColorSet) ou a cor do cliente usada na tentativa.
	Color domain.RGB
	// RetryAfter só é preenchido em OutcomeCooldownBlocked.
	RetryAfter time.Duration
}

// Engine orquestra parser, cooldown, canvas, renderer e registro do cliente.
//
// Toda a colocação (ler-comparar-gravar-snapshot-renderizar-timestamp) roda
// numa seção crítica global, para que duas colocações quase simultâneas não
// passem pela checagem de no-op contra uma cor antiga.
type Engine struct {
	Canvas   domain.CanvasStore
	Clients  domain.ClientStore
	Renderer domain.Renderer
	Stats    domain.StatsStore

	Cooldown       Cooldown
	TimelapseEvery int
	Now            func() time.Time

	mu sync.Mutex
}

// Handle executa uma instrução crua em nome do cliente id.
//
// Rejected, ColorSet, CooldownBlocked e NoopBlocked não são erros.
// Um erro retornado sempre embrulha domain.ErrStorage e significa que a
// requisição não pode ser reportada como sucesso.
func (e *Engine) Handle(ctx context.Context, id domain.ClientID, raw string) (Result, error) {
	res, err := e.handle(ctx, id, raw)
	if err != nil {
		return res, err
	}
	if e.Stats != nil {
		_ = e.Stats.Record(ctx, domain.StatsEvent{
			Client:  id,
			Outcome: res.Outcome,
			At:      e.now(),
		})
	}
	return res, nil
}

func (e *Engine) handle(ctx context.Context, id domain.ClientID, raw string) (Result, error) {
	ins, err := domain.ParseInstruction(raw, e.Canvas.Side())
	if err != nil {
		return Result{Outcome: domain.OutcomeRejected}, nil
	}

	if ins.Kind == domain.KindSetColor {
		if err := domain.SetColor(ctx, e.Clients, id, ins.Color); err != nil {
			return Result{}, storageErr("set color", err)
		}
		return Result{Outcome: domain.OutcomeColorSet, Color: ins.Color}, nil
	}
	return e.place(ctx, id, ins.Col, ins.Row)
}

func (e *Engine) place(ctx context.Context, id domain.ClientID, col, row int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Col: col, Row: row}

	rec, err := e.Clients.Get(ctx, id)
	if err != nil {
		return res, storageErr("read client", err)
	}
	res.Color = rec.Color
	now := e.now()

	if dec := e.Cooldown.Decide(rec.LastPlacement, now); !dec.Allowed {
		res.Outcome = domain.OutcomeCooldownBlocked
		res.RetryAfter = dec.RetryAfter
		return res, nil
	}

	// mesma cor: provável clique duplo/retry. Não consome o cooldown.
	if e.Canvas.Pixel(col, row) == rec.Color {
		res.Outcome = domain.OutcomeNoopBlocked
		return res, nil
	}

	if err := e.Canvas.SetPixel(col, row, rec.Color); err != nil {
		return res, storageErr(fmt.Sprintf("set pixel (%d,%d)", col, row), err)
	}

	if e.Renderer != nil {
		if err := e.Renderer.RenderStill(ctx, e.Canvas.Image()); err != nil {
			return res, storageErr("render still", err)
		}
		if e.Canvas.SnapshotCount()%e.timelapseEvery() == 0 {
			if err := e.Renderer.RenderTimelapse(ctx, e.Canvas); err != nil {
				return res, storageErr("render timelapse", err)
			}
		}
	}

	if err := domain.SetPlacementTime(ctx, e.Clients, id, now); err != nil {
		return res, storageErr("record placement time", err)
	}

	res.Outcome = domain.OutcomePlaced
	return res, nil
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) timelapseEvery() int {
	if e.TimelapseEvery <= 0 {
		return DefaultTimelapseEvery
	}
	return e.TimelapseEvery
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
