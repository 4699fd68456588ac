package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/recorderctl/internal/server"
	"github.com/audiolibrelab/recorderctl/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start an HTTP server exposing the recorder session.
POST /prepare, /start, /pause, /resume, /stop and /destroy drive the
session; GET /status reports it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Server.Port
		}

		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		svc, _ := service.NewSimulated(cfg)
		defer svc.Close(context.Background())

		srv := server.New(svc, cfg, cfgFile, port)
		slog.Info("Recorder web server starting", "port", port, "config", cfgFile, "profile", cfg.Profile)

		// Start server (this blocks)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port for the web server (default from config, 8080)")
}
