package service

import (
	"context"

	"chainlist-prober/internal/domain/entity"
)

// EndpointProber runs the connectivity, RPC correctness and IPv6 stages against one URL.
// Implementations absorb every error into the returned outcome and are safe for concurrent use.
type EndpointProber interface {
	Probe(ctx context.Context, rpcURL entity.RPCURL) entity.ProbeOutcome
}
