package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chainlist-prober/internal/adapter/storage/memory"
	"chainlist-prober/internal/domain"
	"chainlist-prober/internal/domain/entity"
	"chainlist-prober/internal/pkg/apperrors"
)

func TestResultService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewResultRepository(zap.NewNop())
	svc := NewResultService(store, zap.NewNop())

	_, err := svc.GetAllResults(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetChainRPCs(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrChainNotFound)

	record, err := entity.NewChainRecord(entity.ChainResult{
		Name:    "One",
		ChainID: 1,
		RPCs:    []entity.WorkingRPC{{URL: "https://a.example"}},
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveChainRecord(ctx, record))
	merged := entity.NewMergedResultSet()
	merged.Put(record)
	require.NoError(t, store.SaveMergedResults(ctx, merged))

	rpcs, err := svc.GetChainRPCs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record.Result.RPCs, rpcs)

	all, err := svc.GetAllResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, all.Keys())
}
