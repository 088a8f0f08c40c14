package entity

import "time"

// Protocol defines the type for RPC protocols.
type Protocol string

// Constants for known protocols.
const (
	ProtocolHTTP    Protocol = "http"
	ProtocolHTTPS   Protocol = "https"
	ProtocolWS      Protocol = "ws"
	ProtocolWSS     Protocol = "wss"
	ProtocolUnknown Protocol = "unknown"
)

// IsWebSocket reports whether the protocol is ws or wss.
func (p Protocol) IsWebSocket() bool {
	return p == ProtocolWS || p == ProtocolWSS
}

// Probe stages, in execution order.
const (
	StageConnectivity = "connectivity"
	StageRPC          = "rpc"
	StageIPv6         = "ipv6"
)

// ProbeOutcome is the result of running every probe stage against one URL.
// Reachable and RPCValid failures both collapse into a non-working outcome.
type ProbeOutcome struct {
	URL          RPCURL
	Protocol     Protocol
	Reachable    bool
	RPCValid     bool
	SupportsIPv6 bool
	BlockNumber  string
	Latency      time.Duration
}

// Working reports whether the endpoint passed connectivity and RPC correctness.
func (o ProbeOutcome) Working() bool {
	return o.Reachable && o.RPCValid
}

// FailedStage returns the first stage that failed, or "" for a working endpoint.
func (o ProbeOutcome) FailedStage() string {
	switch {
	case !o.Reachable:
		return StageConnectivity
	case !o.RPCValid:
		return StageRPC
	default:
		return ""
	}
}

// WorkingRPC projects a working outcome into its persisted form.
func (o ProbeOutcome) WorkingRPC() WorkingRPC {
	return WorkingRPC{URL: o.URL, SupportsIPv6: o.SupportsIPv6}
}
