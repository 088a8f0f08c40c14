package repository

import (
	"context"

	"chainlist-prober/internal/domain/entity"
)

// ChainRepository defines the interface for accessing the chain directory.
type ChainRepository interface {
	// GetAllChains retrieves the list of all chains from the underlying data source.
	GetAllChains(ctx context.Context) ([]entity.Chain, error)
}
