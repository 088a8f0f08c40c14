package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainlist-prober/internal/adapter/rpc"
	"chainlist-prober/internal/adapter/storage/chainlist"
	"chainlist-prober/internal/adapter/storage/filesystem"
	"chainlist-prober/internal/adapter/storage/memory"
	"chainlist-prober/internal/application"
	"chainlist-prober/internal/config"
	domainRepo "chainlist-prober/internal/domain/repository"
	"chainlist-prober/internal/observability/metrics"
)

const metricsNamespace = "chainlist_prober"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the chain directory, probe every endpoint and write the results",
		Long: `Fetch the chain directory, probe every endpoint and write the results.

Chains are processed one at a time; the endpoints of a chain are probed
concurrently. One <chainId>.json file is written per chain and the merged
document is written once after the last chain.

EXAMPLES:
  # Probe everything into ./output
  chainlist-prober run

  # Resume an interrupted run
  chainlist-prober run --skip-existing

  # Probe two chains from a local directory file without writing anything
  chainlist-prober run --chainlist-file chains.json --chains 1,137 --dry-run
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Int("concurrency", config.DefaultConcurrency, "endpoints probed in parallel per chain")
	flags.Bool("skip-existing", false, "reuse chains that already have a result file")
	flags.Bool("websocket", false, "probe ws:// and wss:// endpoints")
	flags.StringSlice("chains", nil, "only process these chain IDs")
	flags.String("chainlist-url", "", "chain directory URL")
	flags.String("chainlist-file", "", "read the chain directory from a local JSON or YAML file")
	flags.String("out", "", "output directory")
	flags.Bool("dry-run", false, "keep results in memory and print the merged document")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")

	return cmd
}

func runProbe(cmd *cobra.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var chainRepo domainRepo.ChainRepository
	if cfg.Chainlist.File != "" {
		chainRepo = chainlist.NewFileRepository(cfg.Chainlist.File, logger)
	} else {
		chainRepo = chainlist.NewRepository(cfg.Chainlist, logger)
	}

	var resultRepo domainRepo.ResultRepository
	var store *memory.ResultRepository
	if cfg.Output.DryRun {
		store = memory.NewResultRepository(logger)
		resultRepo = store
	} else {
		resultRepo = filesystem.NewResultRepository(cfg.Output, logger)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metricsNamespace)
	}

	prober := rpc.NewChecker(cfg.Checker, logger)
	service := application.NewProbeService(chainRepo, resultRepo, prober, m, logger, cfg.Checker)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := service.Run(ctx)

	if m != nil && cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("Failed to write metrics textfile", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	if store != nil {
		merged, found, err := store.GetMergedResults(ctx)
		if err != nil {
			return err
		}
		if found {
			body, err := json.MarshalIndent(merged, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode merged results: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "chains written: %d, skipped: %d, invalid: %d, working urls: %d/%d\n",
		summary.ChainsWritten, summary.ChainsSkipped, summary.ChainsInvalid, summary.URLsWorking, summary.URLsChecked,
	)
	return nil
}
