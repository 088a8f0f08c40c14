package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainlist-prober/internal/config"
	"chainlist-prober/internal/logger"
)

var (
	version   = "dev"
	configDir string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "chainlist-prober",
		Short:        "Probe public blockchain RPC endpoints and record the working ones",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "directory containing config.yaml")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// setup loads configuration with the command's flags bound and builds the
// logger, tagged with a fresh run ID.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configDir, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configDir, err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	log = log.With(zap.String("runId", uuid.NewString()))
	log.Debug("Logger initialized", zap.Any("config", cfg.Logger))
	return cfg, log, nil
}
