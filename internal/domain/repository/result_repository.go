package repository

import (
	"context"

	"chainlist-prober/internal/domain/entity"
)

// ResultRepository defines the sink for per-chain and merged probe results.
type ResultRepository interface {
	// GetChainRecord retrieves a previously persisted chain record, returning found status.
	GetChainRecord(ctx context.Context, chainID int64) (entity.ChainRecord, bool, error)

	// SaveChainRecord persists one chain record, fully replacing any previous one.
	SaveChainRecord(ctx context.Context, record entity.ChainRecord) error

	// GetMergedResults retrieves the persisted merged document, returning found status.
	GetMergedResults(ctx context.Context) (*entity.MergedResultSet, bool, error)

	// SaveMergedResults persists the merged document, fully replacing any previous one.
	SaveMergedResults(ctx context.Context, merged *entity.MergedResultSet) error
}
