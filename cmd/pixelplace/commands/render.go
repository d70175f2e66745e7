package commands

import (
	"fmt"
	"log"

	"pixelplace/internal/config"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Refaz o vídeo do canvas e o timelapse a partir do disco",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		rt, err := openCanvas(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		if err := rt.renderer.RenderStill(ctx, rt.canvas.Image()); err != nil {
			return err
		}
		if err := rt.renderer.RenderTimelapse(ctx, rt.canvas); err != nil {
			return err
		}

		log.Printf("rendered %s and %s from %d snapshots", cfg.VideoPath, cfg.TimelapsePath, rt.canvas.SnapshotCount())
		return nil
	},
}
