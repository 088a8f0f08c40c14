package entity

import (
	"encoding/json"
	"fmt"
	"strconv"

	"chainlist-prober/internal/domain"
)

// UnknownChainName is used when a chain descriptor carries no name.
const UnknownChainName = "Unknown"

// Chain represents a blockchain network and its candidate RPC endpoints.
// RPC keeps the directory order and is never deduplicated.
type Chain struct {
	ChainID int64
	Name    string
	RPC     []RPCURL
}

// Validate reports ErrMissingChainID for a chain without a positive ID.
func (c Chain) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("%w: chain %q", domain.ErrMissingChainID, c.Name)
	}
	return nil
}

// Key returns the chain ID in the form used by the merged document.
func (c Chain) Key() string {
	return strconv.FormatInt(c.ChainID, 10)
}

// WorkingRPC is one endpoint that passed connectivity and RPC correctness.
type WorkingRPC struct {
	URL          RPCURL `json:"url"`
	SupportsIPv6 bool   `json:"supportsIpv6"`
}

// ChainResult is the persisted per-chain document.
type ChainResult struct {
	Name    string       `json:"name"`
	ChainID int64        `json:"chainId"`
	RPCs    []WorkingRPC `json:"rpcs"`
}

// NewChainResult creates an empty result for the chain.
func NewChainResult(chain Chain) ChainResult {
	return ChainResult{
		Name:    chain.Name,
		ChainID: chain.ChainID,
		RPCs:    make([]WorkingRPC, 0),
	}
}

// MarshalJSON keeps rpcs as an array when no endpoint is working.
func (r ChainResult) MarshalJSON() ([]byte, error) {
	type alias ChainResult
	if r.RPCs == nil {
		r.RPCs = make([]WorkingRPC, 0)
	}
	return json.Marshal(alias(r))
}

// ChainRecord pairs a chain result with the exact document bytes it was persisted as.
type ChainRecord struct {
	Result ChainResult
	Raw    json.RawMessage
}

// NewChainRecord encodes the result into a record.
func NewChainRecord(result ChainResult) (ChainRecord, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return ChainRecord{}, fmt.Errorf("failed to encode chain %d result: %w", result.ChainID, err)
	}
	return ChainRecord{Result: result, Raw: raw}, nil
}

// ChainState is the terminal state a chain reaches within one run.
type ChainState string

// Chain states. Every chain starts pending and ends in exactly one of the others.
const (
	ChainPending        ChainState = "pending"
	ChainSkipped        ChainState = "skipped"
	ChainEmptyWritten   ChainState = "empty-written"
	ChainCheckedWritten ChainState = "checked-written"
)
