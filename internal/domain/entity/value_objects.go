package entity

import (
	"fmt"
	"net/url"
	"strings"

	"chainlist-prober/internal/pkg/apperrors"
)

// RPCURL represents a candidate RPC endpoint exactly as it appeared in the directory.
// It may be malformed; Parse reports whether it can be probed at all.
type RPCURL string

// String returns the string representation of the RPCURL.
func (r RPCURL) String() string {
	return string(r)
}

// Parse validates the URL and returns its protocol and hostname.
func (r RPCURL) Parse() (Protocol, string, error) {
	raw := strings.TrimSpace(string(r))
	if raw == "" {
		return ProtocolUnknown, "", fmt.Errorf("%w: rpc url cannot be empty", apperrors.ErrInvalidInput)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ProtocolUnknown, "", fmt.Errorf("%w: invalid rpc url format '%s': %v", apperrors.ErrInvalidInput, raw, err)
	}

	var protocol Protocol
	switch strings.ToLower(u.Scheme) {
	case "http":
		protocol = ProtocolHTTP
	case "https":
		protocol = ProtocolHTTPS
	case "ws":
		protocol = ProtocolWS
	case "wss":
		protocol = ProtocolWSS
	default:
		return ProtocolUnknown, "", fmt.Errorf("%w: rpc url '%s' has unsupported scheme: '%s'",
			apperrors.ErrInvalidInput, raw, u.Scheme,
		)
	}

	host := u.Hostname()
	if host == "" {
		return protocol, "", fmt.Errorf("%w: rpc url '%s' has no host", apperrors.ErrInvalidInput, raw)
	}
	return protocol, host, nil
}

// Hostname returns the URL's host without port, or "" when the URL is invalid.
func (r RPCURL) Hostname() string {
	_, host, err := r.Parse()
	if err != nil {
		return ""
	}
	return host
}
