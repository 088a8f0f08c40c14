package http

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	handler "chainlist-prober/internal/adapter/handler/http"
	"chainlist-prober/internal/observability/metrics"
)

// RegisterRoutes sets up the result routes, the health check and, when m is
// non-nil, the Prometheus endpoint.
func RegisterRoutes(r *router.Router, h *handler.ResultHandler, m *metrics.Metrics, logger *zap.Logger) {
	logger.Info("Setting up application-specific routes...")

	r.GET("/chains", h.GetAllChains)
	r.GET("/chains/{chainId:[0-9]+}/rpcs", h.GetChainRPCs)

	logger.Info("Setting up health check route...")
	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})

	if m != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(m.Handler()))
	}

	logger.Info("All routes registered.")
}

// LoggingMiddleware logs every request at debug level.
func LoggingMiddleware(next fasthttp.RequestHandler, logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		logger.Debug("Request served",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
		)
	}
}
