package application

import (
	"context"
	"errors"
	"fmt"

	"chainlist-prober/internal/application/port"
	"chainlist-prober/internal/domain"
	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"
	"chainlist-prober/internal/pkg/apperrors"

	"go.uber.org/zap"
)

// Compile-time check to ensure resultService implements ResultService
var _ port.ResultService = (*resultService)(nil)

type resultService struct {
	resultRepo domainRepo.ResultRepository
	logger     *zap.Logger
}

// NewResultService creates a read-only view over persisted results.
func NewResultService(resultRepo domainRepo.ResultRepository, logger *zap.Logger) port.ResultService {
	return &resultService{
		resultRepo: resultRepo,
		logger:     logger.Named("ResultService"),
	}
}

// GetAllResults returns apperrors.ErrNotFound until a run has written the merged document.
func (s *resultService) GetAllResults(ctx context.Context) (*entity.MergedResultSet, error) {
	merged, found, err := s.resultRepo.GetMergedResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no merged results persisted", apperrors.ErrNotFound)
	}
	return merged, nil
}

// GetChainRPCs returns domain.ErrChainNotFound when no record exists for the chain.
func (s *resultService) GetChainRPCs(ctx context.Context, chainID int64) ([]entity.WorkingRPC, error) {
	record, found, err := s.resultRepo.GetChainRecord(ctx, chainID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordCorrupt) {
			s.logger.Warn("Persisted chain record is corrupt", zap.Int64("chainId", chainID), zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: chain %d", domain.ErrChainNotFound, chainID)
	}
	if record.Result.RPCs == nil {
		return []entity.WorkingRPC{}, nil
	}
	return record.Result.RPCs, nil
}
