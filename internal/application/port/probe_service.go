package port

import (
	"context"
)

// RunSummary holds the run-wide counters reported at the end of a run.
type RunSummary struct {
	ChainsWritten int `json:"chainsWritten"`
	ChainsSkipped int `json:"chainsSkipped"`
	ChainsInvalid int `json:"chainsInvalid"`
	URLsChecked   int `json:"urlsChecked"`
	URLsWorking   int `json:"urlsWorking"`
}

// ProbeService defines the interface for probing every selected chain and persisting the results.
type ProbeService interface {
	// Run fetches the chain directory, probes chains sequentially and writes
	// the per-chain and merged documents. Only directory-level failures, write
	// failures and cancellation are returned as errors.
	Run(ctx context.Context) (RunSummary, error)
}
