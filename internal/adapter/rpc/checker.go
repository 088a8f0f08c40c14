package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"chainlist-prober/internal/config"
	"chainlist-prober/internal/domain/entity"
	domainService "chainlist-prober/internal/domain/service"
	"chainlist-prober/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.EndpointProber = (*Checker)(nil)

const maxResponseBodySize = 1 << 20 // 1MB

// checkPayload is the standard JSON-RPC request to check node health.
var checkPayload = []byte(`{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":1}`)

var hexQuantity = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// JSONRPCResponse defines the basic structure for a JSON-RPC response.
type JSONRPCResponse struct {
	ID      interface{}     `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure for a JSON-RPC error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Resolver looks up addresses for a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithResolver replaces the resolver used for the IPv6 stage.
func WithResolver(r Resolver) Option {
	return func(c *Checker) { c.resolver = r }
}

// Checker implements the domainService.EndpointProber interface.
type Checker struct {
	client         *fasthttp.Client
	resolver       Resolver
	logger         *zap.Logger
	connectTimeout time.Duration
	rpcTimeout     time.Duration
	dnsTimeout     time.Duration
	webSocket      bool
}

// NewChecker creates a new endpoint prober. Every stage is attempted exactly once.
func NewChecker(cfg config.CheckerConfig, logger *zap.Logger, opts ...Option) *Checker {
	c := &Checker{
		client: &fasthttp.Client{
			Name:                      "chainlist-prober",
			DialDualStack:             true,
			MaxResponseBodySize:       maxResponseBodySize,
			MaxIdemponentCallAttempts: 1,
			ReadBufferSize:            16 * 1024,
		},
		resolver:       net.DefaultResolver,
		logger:         logger.Named("EndpointProber"),
		connectTimeout: cfg.GetConnectTimeout(),
		rpcTimeout:     cfg.GetRPCTimeout(),
		dnsTimeout:     cfg.GetDNSTimeout(),
		webSocket:      cfg.WebSocket,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe runs connectivity, RPC correctness and IPv6 stages in order, stopping
// at the first failure of the first two. It never returns an error.
func (c *Checker) Probe(ctx context.Context, rpcURL entity.RPCURL) entity.ProbeOutcome {
	outcome := entity.ProbeOutcome{URL: rpcURL, Protocol: entity.ProtocolUnknown}
	rawURL := rpcURL.String()

	protocol, host, err := rpcURL.Parse()
	if err != nil {
		c.logger.Debug("Skipping probe for invalid RPC URL", zap.String("url", rawURL), zap.Error(err))
		return outcome
	}
	outcome.Protocol = protocol

	startTime := time.Now()
	if protocol.IsWebSocket() {
		if !c.webSocket {
			c.logger.Debug("Skipping WebSocket URL, websocket probing disabled", zap.String("url", rawURL))
			return outcome
		}
		outcome.Reachable, outcome.BlockNumber, err = c.checkWS(ctx, rawURL)
		outcome.RPCValid = err == nil
	} else {
		if err = c.checkConnectivity(ctx, rawURL); err == nil {
			outcome.Reachable = true
			outcome.BlockNumber, err = c.checkHTTP(ctx, rawURL)
			outcome.RPCValid = err == nil
		}
	}
	outcome.Latency = time.Since(startTime)

	if !outcome.Working() {
		c.logger.Debug("Probe failed",
			zap.String("url", rawURL),
			zap.String("stage", outcome.FailedStage()),
			zap.Duration("latency", outcome.Latency),
			zap.Error(err),
		)
		return outcome
	}

	outcome.SupportsIPv6 = c.checkIPv6(ctx, host)
	return outcome
}

// checkConnectivity issues a HEAD request; any response at all means the endpoint is reachable.
func (c *Checker) checkConnectivity(ctx context.Context, rpcURL string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL)
	req.Header.SetMethod(fasthttp.MethodHead)

	timeout, err := stageTimeout(ctx, c.connectTimeout)
	if err != nil {
		return err
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("%w: connectivity check to %s timed out after %v", apperrors.ErrTimeout, rpcURL, timeout)
		}
		return fmt.Errorf("%w: connectivity check to %s failed: %v", apperrors.ErrExternalServiceFailure, rpcURL, err)
	}

	c.logger.Debug("Connectivity check passed", zap.String("url", rpcURL), zap.Int("statusCode", resp.StatusCode()))
	return nil
}

// checkHTTP performs the JSON-RPC check over HTTP/HTTPS. The HTTP status is not inspected.
func (c *Checker) checkHTTP(ctx context.Context, rpcURL string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(checkPayload)

	timeout, err := stageTimeout(ctx, c.rpcTimeout)
	if err != nil {
		return "", err
	}

	if requestErr := c.client.DoTimeout(req, resp, timeout); requestErr != nil {
		if errors.Is(requestErr, fasthttp.ErrTimeout) {
			return "", fmt.Errorf("%w: http request to %s timed out after %v: %v",
				apperrors.ErrTimeout, rpcURL, timeout, requestErr,
			)
		}
		return "", fmt.Errorf("%w: http request to %s failed: %v",
			apperrors.ErrExternalServiceFailure, rpcURL, requestErr,
		)
	}

	body := resp.Body()
	if bytes.EqualFold(resp.Header.Peek(fasthttp.HeaderContentEncoding), []byte("gzip")) {
		body, err = resp.BodyGunzip()
		if err != nil {
			return "", fmt.Errorf("%w: failed to decompress response from %s: %v",
				apperrors.ErrExternalServiceFailure, rpcURL, err,
			)
		}
	}

	blockNumber, err := ValidateBlockNumberResponse(body)
	if err != nil {
		c.logger.Debug("RPC check returned invalid response",
			zap.String("url", rpcURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("body", body[:min(256, len(body))]),
			zap.Error(err),
		)
		return "", fmt.Errorf("rpc %s: %w", rpcURL, err)
	}
	return blockNumber, nil
}

// checkIPv6 reports whether the host has at least one AAAA record. The lookup
// races the stage deadline so a resolver that ignores ctx cannot stall a probe.
func (c *Checker) checkIPv6(ctx context.Context, host string) bool {
	if host == "" || c.resolver == nil {
		return false
	}

	timeout, err := stageTimeout(ctx, c.dnsTimeout)
	if err != nil {
		return false
	}
	dnsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type lookupResult struct {
		ips []net.IP
		err error
	}
	done := make(chan lookupResult, 1)
	go func() {
		ips, err := c.resolver.LookupIP(dnsCtx, "ip6", host)
		done <- lookupResult{ips: ips, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			c.logger.Debug("AAAA lookup failed", zap.String("host", host), zap.Error(res.err))
			return false
		}
		for _, ip := range res.ips {
			if ip.To4() == nil && ip.To16() != nil {
				return true
			}
		}
		return false
	case <-dnsCtx.Done():
		c.logger.Debug("AAAA lookup timed out", zap.String("host", host), zap.Duration("timeout", timeout))
		return false
	}
}

// ValidateBlockNumberResponse checks that body is JSON whose result is a hex
// quantity string and returns that string.
func ValidateBlockNumberResponse(body []byte) (string, error) {
	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return "", fmt.Errorf("%w: invalid JSON response: %v", apperrors.ErrExternalServiceFailure, err)
	}

	if len(rpcResp.Result) == 0 {
		if rpcResp.Error != nil {
			return "", fmt.Errorf("%w: json-rpc error: %d %s",
				apperrors.ErrExternalServiceFailure, rpcResp.Error.Code, rpcResp.Error.Message,
			)
		}
		return "", fmt.Errorf("%w: response has no result", apperrors.ErrExternalServiceFailure)
	}

	var result string
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return "", fmt.Errorf("%w: result is not a string: %s", apperrors.ErrExternalServiceFailure, rpcResp.Result)
	}
	if !hexQuantity.MatchString(result) {
		return "", fmt.Errorf("%w: result %q is not a hex quantity", apperrors.ErrExternalServiceFailure, result)
	}
	return result, nil
}

// stageTimeout returns the stage timeout, shortened to the context deadline if that comes first.
func stageTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			if remaining <= 0 {
				return 0, fmt.Errorf("%w: context deadline passed", apperrors.ErrTimeout)
			}
			timeout = remaining
		}
	}
	return timeout, nil
}
