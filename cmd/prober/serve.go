package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	deliveryHTTP "chainlist-prober/internal/adapter/delivery/http"
	handlerHTTP "chainlist-prober/internal/adapter/handler/http"
	"chainlist-prober/internal/adapter/storage/filesystem"
	"chainlist-prober/internal/application"
	"chainlist-prober/internal/observability/metrics"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persisted results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("port", "", "HTTP port")
	flags.String("out", "", "output directory to serve results from")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	resultRepo := filesystem.NewResultRepository(cfg.Output, logger)
	service := application.NewResultService(resultRepo, logger)
	handler := handlerHTTP.NewResultHandler(service, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metricsNamespace)
	}

	r := router.New()
	deliveryHTTP.RegisterRoutes(r, handler, m, logger)

	server := &fasthttp.Server{
		Name:    cfg.App.Name,
		Handler: deliveryHTTP.LoggingMiddleware(r.Handler, logger),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverAddr := ":" + cfg.Server.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("resultsDir", cfg.Output.Dir))
		errCh <- server.ListenAndServe(serverAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
