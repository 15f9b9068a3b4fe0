package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/bootstrap"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "grievancectl",
	Short: "Operate the grievance service: migrations, SLA sweeps, admin seeding",
	Long: `grievancectl runs maintenance tasks against the same stores the API uses.

Configuration is read from the environment (and .env when present), exactly as
the API server reads it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func openContainer(ctx context.Context) (*bootstrap.Container, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, logger)
}
