package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"chainlist-prober/internal/application/port"
	"chainlist-prober/internal/domain"
	"chainlist-prober/internal/pkg/apperrors"
)

// ResultHandler serves persisted probe results.
type ResultHandler struct {
	service port.ResultService
	logger  *zap.Logger
}

func NewResultHandler(service port.ResultService, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{
		service: service,
		logger:  logger.Named("ResultHandler"),
	}
}

// GetAllChains returns the merged document of the last run, keys in processing order.
func (h *ResultHandler) GetAllChains(ctx *fasthttp.RequestCtx) {
	merged, err := h.service.GetAllResults(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			ctx.Error("Not Found: no completed run", fasthttp.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get merged results", zap.Error(err))
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(merged)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// GetChainRPCs returns the working endpoints of one chain.
func (h *ResultHandler) GetChainRPCs(ctx *fasthttp.RequestCtx) {
	chainIDStr, ok := ctx.UserValue("chainId").(string)
	if !ok {
		h.logger.Error("Failed to get chainId from context")
		ctx.Error("Bad Request: Invalid chainId format", fasthttp.StatusBadRequest)
		return
	}

	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("Failed to parse chainId", zap.String("chainIdStr", chainIDStr), zap.Error(err))
		ctx.Error("Bad Request: Invalid chainId", fasthttp.StatusBadRequest)
		return
	}

	rpcs, err := h.service.GetChainRPCs(ctx, chainID)
	if err != nil {
		if errors.Is(err, domain.ErrChainNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get RPCs for chain", zap.Int64("chainId", chainID), zap.Error(err))
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(rpcs); err != nil {
		h.logger.Error("Failed to encode RPC response", zap.Error(err))
	}
}
