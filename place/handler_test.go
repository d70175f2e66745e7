package place

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pixelplace/place/application"
	"pixelplace/place/domain"
	"pixelplace/place/infra"
)

type testServer struct {
	h      http.Handler
	canvas *infra.FileCanvas
	clock  time.Time
}

func newTestServer(t *testing.T, cooldown time.Duration) *testServer {
	t.Helper()
	return newThrottledTestServer(t, cooldown, nil)
}

func newThrottledTestServer(t *testing.T, cooldown time.Duration, limiters domain.LimiterStore) *testServer {
	t.Helper()
	dir := t.TempDir()

	canvas, err := infra.OpenFileCanvas(filepath.Join(dir, "canvas.png"), filepath.Join(dir, "backups"), 8)
	if err != nil {
		t.Fatalf("open canvas: %v", err)
	}
	clients, err := infra.NewFileClientStore(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("client store: %v", err)
	}
	renderer := infra.NewMJPEGRenderer(filepath.Join(dir, "canvas.avi"), filepath.Join(dir, "timelapse.avi"))
	if err := renderer.RenderStill(context.Background(), canvas.Image()); err != nil {
		t.Fatalf("initial render: %v", err)
	}

	ts := &testServer{canvas: canvas, clock: time.Unix(1_700_000_000, 0)}
	engine := &application.Engine{
		Canvas:   canvas,
		Clients:  clients,
		Renderer: renderer,
		Cooldown: application.Cooldown{Threshold: cooldown},
		Now:      func() time.Time { return ts.clock },
	}
	ts.h = NewHandler(HandlerOptions{
		Engine:    engine,
		StillPath: renderer.StillPath(),
		Limiters:  limiters,
	})
	return ts
}

func (ts *testServer) get(path, addr string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://example"+path, nil)
	r.RemoteAddr = addr
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, r)
	return w
}

func TestHandler_GetPlaceServesStill(t *testing.T) {
	ts := newTestServer(t, 30*time.Second)

	w := ts.get("/place", "10.0.0.1:1234")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != infra.VideoMimeType {
		t.Fatalf("expected %s, got %q", infra.VideoMimeType, ct)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected video body")
	}
	if w.Header().Get("X-Place-Outcome") != "" {
		t.Fatalf("expected no outcome header on plain GET")
	}
}

func TestHandler_ColorThenPlaceScenario(t *testing.T) {
	ts := newTestServer(t, 30*time.Second)
	addr := "10.0.0.1:1234"

	steps := []struct {
		path    string
		outcome string
	}{
		{"/place/cff0000", "color-set"},
		{"/place/p0", "placed"},
		{"/place/p0", "cooldown"},
		{"/place/nonsense", "rejected"},
	}
	for _, s := range steps {
		w := ts.get(s.path, addr)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", s.path, w.Code)
		}
		if got := w.Header().Get("X-Place-Outcome"); got != s.outcome {
			t.Fatalf("%s: expected outcome %q, got %q", s.path, s.outcome, got)
		}
		if w.Header().Get("Content-Type") != infra.VideoMimeType {
			t.Fatalf("%s: expected artifact in response", s.path)
		}
	}

	if ts.canvas.Pixel(0, 0) != (domain.RGB{R: 255}) {
		t.Fatalf("expected (0,0) red")
	}
	if ts.canvas.SnapshotCount() != 1 {
		t.Fatalf("expected 1 snapshot, got %d", ts.canvas.SnapshotCount())
	}
}

func TestHandler_CooldownSetsRetryAfter(t *testing.T) {
	ts := newTestServer(t, 30*time.Second)
	addr := "10.0.0.1:1234"

	ts.get("/place/cff0000", addr)
	ts.get("/place/p0", addr)
	ts.clock = ts.clock.Add(10*time.Second + 500*time.Millisecond)

	w := ts.get("/place/p1", addr)
	if got := w.Header().Get("Retry-After"); got != "20" {
		// 19.5s restantes arredondados para cima
		t.Fatalf("expected Retry-After=20, got %q", got)
	}
}

func TestHandler_ClientsAreIndependent(t *testing.T) {
	ts := newTestServer(t, 30*time.Second)

	ts.get("/place/cff0000", "10.0.0.1:1")
	ts.get("/place/p0", "10.0.0.1:1")

	ts.get("/place/c00ff00", "10.0.0.2:1")
	w := ts.get("/place/p1", "10.0.0.2:1")
	if got := w.Header().Get("X-Place-Outcome"); got != "placed" {
		t.Fatalf("expected second client to place, got %q", got)
	}
	// mesmo IP, outra porta: mesmo cliente
	w = ts.get("/place/p2", "10.0.0.2:9999")
	if got := w.Header().Get("X-Place-Outcome"); got != "cooldown" {
		t.Fatalf("expected same host to share cooldown, got %q", got)
	}
}

type failingPlacer struct{}

func (failingPlacer) Handle(context.Context, domain.ClientID, string) (application.Result, error) {
	return application.Result{}, fmt.Errorf("set pixel: %w", domain.ErrStorage)
}

func TestHandler_StorageFailureIs500(t *testing.T) {
	dir := t.TempDir()
	still := filepath.Join(dir, "canvas.avi")
	r := infra.NewMJPEGRenderer(still, filepath.Join(dir, "timelapse.avi"))
	if err := r.RenderStill(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(HandlerOptions{Engine: failingPlacer{}, StillPath: still})
	req := httptest.NewRequest(http.MethodGet, "http://example/place/p0", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Header().Get("X-Place-Outcome") != "" {
		t.Fatalf("expected no outcome header on failure")
	}
}

func TestHandler_MissingArtifactIs503(t *testing.T) {
	h := NewHandler(HandlerOptions{Engine: failingPlacer{}, StillPath: filepath.Join(t.TempDir(), "missing.avi")})
	req := httptest.NewRequest(http.MethodGet, "http://example/place", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       0,
		time.Nanosecond:         1,
		time.Second:             1,
		time.Second + 1:         2,
		29*time.Second + 999999: 30,
	}
	for in, want := range cases {
		if got := retryAfterSeconds(in); got != want {
			t.Fatalf("%s: expected %d, got %d", in, want, got)
		}
	}
}

func TestHandler_PollingPastBurstStillServesArtifact(t *testing.T) {
	ts := newThrottledTestServer(t, 30*time.Second, infra.NewLimiterStore(0.02, 1))
	const addr = "10.0.0.1:1234"

	for i := 0; i < 20; i++ {
		w := ts.get("/place", addr)
		if w.Code != http.StatusOK || w.Body.Len() == 0 {
			t.Fatalf("poll %d: expected artifact, got %d", i, w.Code)
		}
		if w.Header().Get("Retry-After") != "" {
			t.Fatalf("poll %d: GET /place must not be throttled", i)
		}
	}

	w := ts.get("/place/cff0000", addr)
	if got := w.Header().Get("X-Place-Outcome"); got != "color-set" {
		t.Fatalf("expected color-set, got %q", got)
	}

	w = ts.get("/place/p0", addr)
	if w.Code != http.StatusOK {
		t.Fatalf("expected throttled instruction to still answer 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Place-Outcome"); got != "throttled" {
		t.Fatalf("expected throttled outcome, got %q", got)
	}
	if got := w.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("expected Retry-After=50, got %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != infra.VideoMimeType || w.Body.Len() == 0 {
		t.Fatalf("expected still artifact on throttle, got %q (%d bytes)", ct, w.Body.Len())
	}
	if got := ts.canvas.Pixel(0, 0); got != domain.Black {
		t.Fatalf("throttled placement must not reach the engine, pixel=%v", got)
	}

	// outro cliente tem seu próprio bucket
	if got := ts.get("/place/p0", "10.0.0.2:1234").Header().Get("X-Place-Outcome"); got != "noop" {
		t.Fatalf("expected other client to reach the engine (noop on black), got %q", got)
	}
}
