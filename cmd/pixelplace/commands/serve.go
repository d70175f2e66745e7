package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelplace/internal/config"
	"pixelplace/place"
	"pixelplace/place/application"
	"pixelplace/place/domain"
	"pixelplace/place/infra"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sobe o servidor HTTP do canvas",
	Long: `Abre o canvas (reconciliando com o snapshot mais recente), garante que o
vídeo do canvas existe, refaz o timelapse uma vez e atende em LISTEN_ADDR
até receber SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := prepareArtifacts(ctx, rt); err != nil {
		return err
	}

	engine := &application.Engine{
		Canvas:         rt.canvas,
		Clients:        rt.clients,
		Renderer:       rt.renderer,
		Stats:          rt.stats,
		Cooldown:       application.Cooldown{Threshold: cfg.Cooldown()},
		TimelapseEvery: cfg.TimelapseEvery,
	}

	keyFn := place.DefaultKeyFunc(cfg.TrustXFF)
	opts := place.HandlerOptions{
		Engine:    engine,
		StillPath: rt.renderer.StillPath(),
		MimeType:  infra.VideoMimeType,
		KeyFn:     keyFn,
	}
	if cfg.RateEnabled {
		limiters := infra.NewLimiterStore(cfg.RateRPS, cfg.RateBurst)
		limiters.StartJanitor(ctx)
		opts.Limiters = limiters
		opts.LimiterRetryAfter = time.Second
	}

	h := place.NewHandler(opts)
	h = place.ConcurrencyMiddleware(place.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	})(h)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Printf("pixelplace listening on %s", ln.Addr())
	log.Printf("canvas: size=%d path=%q snapshots=%q count=%d", cfg.CanvasSize, cfg.CanvasPath, cfg.SnapshotDir, rt.canvas.SnapshotCount())
	log.Printf("placement: cooldown=%s timelapseEvery=%d clientStore=%s", cfg.Cooldown(), cfg.TimelapseEvery, cfg.ClientStore)
	log.Printf("render: video=%q timelapse=%q scale=%d fps=%d/%d", cfg.VideoPath, cfg.TimelapsePath, cfg.UpscaleFactor, cfg.StillFPS, cfg.TimelapseFPS)
	log.Printf("rate: enabled=%v rps=%.3f burst=%d trustXFF=%v", cfg.RateEnabled, cfg.RateRPS, cfg.RateBurst, cfg.TrustXFF)
	log.Printf("concurrency: max=%d acquireTimeout=%s stats=%s", cfg.ConcurrencyMax, cfg.ConcurrencyTimeout, cfg.StatsBackend)

	// rt.Close (defer) só roda depois que runServer devolve, isto é,
	// depois que as requisições em voo terminaram
	err = runServer(ctx, srv, ln)
	logTotals(rt)
	return err
}

// runServer atende em ln até ctx encerrar e só retorna depois que Shutdown
// terminou de drenar as requisições em andamento.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-drained
	return nil
}

// prepareArtifacts garante o vídeo do canvas e refaz o timelapse uma vez.
func prepareArtifacts(ctx context.Context, rt *runtime) error {
	if _, err := os.Stat(rt.renderer.StillPath()); err != nil {
		if err := rt.renderer.RenderStill(ctx, rt.canvas.Image()); err != nil {
			return err
		}
	}
	if err := rt.renderer.RenderTimelapse(ctx, rt.canvas); err != nil {
		return err
	}
	return nil
}

func logTotals(rt *runtime) {
	if rt.totals == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	totals, err := rt.totals.Totals(ctx)
	if err != nil {
		log.Printf("stats: %v", err)
		return
	}
	for _, o := range domain.Outcomes {
		log.Printf("stats: %s=%d", o, totals[o])
	}
}
