package port

import (
	"context"

	"chainlist-prober/internal/domain/entity"
)

// ResultService defines read access to persisted probe results.
type ResultService interface {
	// GetAllResults returns the merged document of the last completed run.
	GetAllResults(ctx context.Context) (*entity.MergedResultSet, error)

	// GetChainRPCs returns the working endpoints persisted for one chain.
	GetChainRPCs(ctx context.Context, chainID int64) ([]entity.WorkingRPC, error)
}
