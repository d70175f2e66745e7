package place

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pixelplace/place/application"
	"pixelplace/place/domain"
	"pixelplace/place/infra"

	"github.com/go-chi/chi/v5"
)

// Placer é o que o handler precisa do engine.
type Placer interface {
	Handle(ctx context.Context, id domain.ClientID, raw string) (application.Result, error)
}

type HandlerOptions struct {
	Engine    Placer
	StillPath string
	MimeType  string
	KeyFn     KeyFunc
	Logger    *log.Logger

	// Limiters protege só GET /place/{instruction}. Requisição barrada não
	// chega ao engine e recebe o artefato atual com Retry-After.
	// GET /place nunca é barrado.
	Limiters          domain.LimiterStore
	LimiterRetryAfter time.Duration
}

type handler struct {
	engine    Placer
	stillPath string
	mimeType  string
	keyFn     KeyFunc
	logger    *log.Logger
}

// NewHandler monta o roteador chi com as rotas /place.
func NewHandler(opts HandlerOptions) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(false)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MimeType == "" {
		opts.MimeType = infra.VideoMimeType
	}

	h := &handler{
		engine:    opts.Engine,
		stillPath: opts.StillPath,
		mimeType:  opts.MimeType,
		keyFn:     opts.KeyFn,
		logger:    opts.Logger,
	}

	throttle := ThrottleMiddleware(ThrottleOptions{
		Store:      opts.Limiters,
		KeyFn:      opts.KeyFn,
		RetryAfter: opts.LimiterRetryAfter,
		Fallback:   http.HandlerFunc(h.serveThrottled),
	})

	r := chi.NewRouter()
	r.Get("/place", h.serveStill)
	r.With(throttle).Get("/place/{instruction}", h.place)
	return r
}

func (h *handler) place(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "instruction")

	res, err := h.engine.Handle(r.Context(), clientID(h.keyFn, r), raw)
	if err != nil {
		h.logger.Printf("place %q: %v", raw, err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Place-Outcome", res.Outcome.String())
	if res.Outcome == domain.OutcomeCooldownBlocked {
		w.Header().Set("Retry-After", formatInt(retryAfterSeconds(res.RetryAfter)))
	}
	h.serveStill(w, r)
}

func (h *handler) serveThrottled(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Place-Outcome", "throttled")
	h.serveStill(w, r)
}

func (h *handler) serveStill(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.stillPath)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "canvas not rendered yet", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Printf("open still artifact: %v", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		h.logger.Printf("stat still artifact: %v", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", h.mimeType)
	// clientes fazem polling: nada de cache intermediário
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, filepath.Base(h.stillPath), st.ModTime(), f)
}
