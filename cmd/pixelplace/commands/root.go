package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pixelplace",
	Short: "Pixelplace - canvas colaborativo de pixels via HTTP",
	Long: `Pixelplace mantém um canvas quadrado compartilhado. Cada cliente escolhe
uma cor com GET /place/c<rrggbb> e pinta um pixel com GET /place/p<index>,
respeitando um cooldown por cliente. Cada pixel aceito gera um snapshot e
atualiza o vídeo do canvas; a cada K snapshots o timelapse é refeito.

Configuração via variáveis de ambiente (CANVAS_SIZE, COOLDOWN_SECONDS, ...).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute roda o comando raiz; chamado por main.main.
func Execute() error {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	return nil
}

func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}
