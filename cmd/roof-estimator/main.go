package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/roof-estimator/internal/config"
	"github.com/ironsheep/roof-estimator/internal/observability"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfg             *config.Config
	shutdownTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:          "roof-estimator",
	Short:        "Estimate roof area from satellite imagery",
	Long:         "Estimates a building's roof area in square feet from a latitude/longitude by analysing a satellite tile, and serves the estimate over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		shutdown, err := observability.InitTracing(cmd.Context(), observability.TracingConfig{
			Enabled:     cfg.Tracing.Enabled,
			ServiceName: cfg.Tracing.ServiceName,
			Exporter:    cfg.Tracing.Exporter,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		shutdownTracing = shutdown

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.ShutdownWithTimeout(context.Background(), shutdownTracing)
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
