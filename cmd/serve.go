package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/voicecapture/internal/config"
	"github.com/audiolibrelab/voicecapture/internal/display"
	"github.com/audiolibrelab/voicecapture/internal/server"
	"github.com/audiolibrelab/voicecapture/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the VoiceCapture web server. The recorder is controlled through
/api/recorder/* and browsers subscribe to the live duration over
/ws/duration. Changes to the config file are applied to the next
recording.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Server.Port
		}

		board := display.NewBoard()
		svc := service.New(cfg, display.NewSink(board, cfg.Display.SurfaceID, nil))
		srv := server.New(svc, board, port)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gCtx)
		})

		if _, err := os.Stat(cfgFile); err == nil {
			g.Go(func() error {
				return config.Watch(gCtx, cfgFile, func() { reloadConfig(svc) })
			})
		}

		slog.Info("VoiceCapture web server starting", "port", port, "config", cfgFile)
		if err := g.Wait(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func reloadConfig(svc service.Service) {
	newCfg, err := config.LoadWithProfile(cfgFile, profile)
	if err != nil {
		slog.Warn("Ignoring invalid config change", "error", err)
		return
	}
	if err := svc.Reload(newCfg); err != nil {
		if errors.Is(err, service.ErrBusy) {
			slog.Warn("Config changed during a recording, restart the server or save again after stopping")
			return
		}
		slog.Warn("Failed to apply config change", "error", err)
	}
}

func init() {
	serveCmd.Flags().String("port", "", "port for the web server (default from config, 8080)")
}
