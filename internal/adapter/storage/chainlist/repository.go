package chainlist

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"chainlist-prober/internal/config"
	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"
	"chainlist-prober/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ChainRepository = (*Repository)(nil)

// Repository implements ChainRepository for fetching data from the Chainlist source.
type Repository struct {
	client  *fasthttp.Client
	url     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRepository creates a new Chainlist repository instance. It configures the HTTP client and stores the Chainlist URL.
func NewRepository(cfg config.ChainlistConfig, logger *zap.Logger) *Repository {
	return &Repository{
		client:  &fasthttp.Client{Name: "chainlist-prober"},
		url:     cfg.URL,
		timeout: cfg.GetTimeout(),
		logger:  logger.Named("ChainlistStorage"),
	}
}

// GetAllChains fetches the full list of chains from the configured Chainlist URL.
func (r *Repository) GetAllChains(ctx context.Context) ([]entity.Chain, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")

	timeout := r.timeout
	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		requestTimeout := time.Until(deadline)
		if requestTimeout > 0 && requestTimeout < timeout {
			timeout = requestTimeout
		}
	}

	r.logger.Debug(
		"Fetching chains from Chainlist",
		zap.String("url", r.url),
		zap.Duration("timeout", timeout),
	)

	err := r.client.DoTimeout(req, resp, timeout)
	if err != nil {
		r.logger.Error("Failed to execute request to Chainlist", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to execute request to Chainlist: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		r.logger.Warn(
			"Chainlist source reported not found",
			zap.Int("statusCode", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: chainlist source reported not found (%s)", apperrors.ErrNotFound, r.url)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		r.logger.Error(
			"Chainlist returned non-OK status",
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("body", resp.Body()[:min(1024, len(resp.Body()))]),
		)
		return nil, fmt.Errorf("%w: chainlist returned status %d",
			apperrors.ErrExternalServiceFailure, resp.StatusCode(),
		)
	}

	var body []byte
	contentEncoding := resp.Header.Peek(fasthttp.HeaderContentEncoding)
	if bytes.EqualFold(contentEncoding, []byte("gzip")) {
		r.logger.Debug("Received gzipped response from Chainlist")
		body, err = resp.BodyGunzip()
		if err != nil {
			r.logger.Error("Failed to gunzip Chainlist response body", zap.Error(err))
			return nil, fmt.Errorf("%w: failed to decompress chainlist response: %v",
				apperrors.ErrExternalServiceFailure, err,
			)
		}
	} else {
		body = resp.Body()
	}

	chains, err := parseJSONDirectory(body, r.logger)
	if err != nil {
		r.logger.Error("Chainlist response is not a chain list",
			zap.Error(err), zap.ByteString("bodySample", body[:min(1024, len(body))]),
		)
		return nil, err
	}

	r.logger.Info("Successfully fetched chains from Chainlist", zap.Int("count", len(chains)))
	return chains, nil
}
