package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/roof-estimator/internal/server"
)

var (
	servePort      int
	serveStaticDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and static file server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		est := newEstimator(cfg, newTileProvider(cfg))
		geo, store, err := newGeocoder(cfg)
		if err != nil {
			return eris.Wrap(err, "serve: geocoder")
		}
		defer store.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		staticDir := serveStaticDir
		if staticDir == "" {
			staticDir = cfg.Server.StaticDir
		}

		srv := server.New(server.Options{
			Estimator:    est,
			Geocoder:     geo,
			StaticDir:    staticDir,
			GeocodeLimit: cfg.Geocode.DefaultLimit,
			TileSize:     cfg.Tiles.Size,
			ImageTimeout: cfg.Image.Timeout(),
			UserAgent:    cfg.Geocode.UserAgent,
		})

		zap.L().Info("starting roof estimator",
			zap.String("version", Version),
			zap.Int("port", port),
			zap.String("static_dir", staticDir),
			zap.Bool("analysis", est.Capability().Enabled()),
			zap.Int("zoom", est.Zoom()),
			zap.String("cache", cfg.Cache.Driver),
		)

		if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static-dir", "", "static file directory (default from config)")
	rootCmd.AddCommand(serveCmd)
}
