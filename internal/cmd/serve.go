package cmd

import (
	"github.com/spf13/cobra"

	"kakaocal/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload UI and conversion API",
	Long: `serve starts an HTTP server with an upload page and a small API that
converts uploaded exports into a calendar or CSV download. Uploads are not
checked against the dedup state file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return web.Serve(ctx, cfg)
}
