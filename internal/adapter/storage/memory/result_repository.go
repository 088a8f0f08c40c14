package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ResultRepository = (*ResultRepository)(nil)

// Cache keys
const (
	mergedResultsKey     = "merged_results"
	chainRecordKeyPrefix = "chain_record_"
)

// ResultRepository implements domainRepo.ResultRepository using the go-cache
// in-memory library. Entries never expire; it backs dry runs and tests.
type ResultRepository struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// NewResultRepository creates a new in-memory result repository instance.
func NewResultRepository(logger *zap.Logger) *ResultRepository {
	logger.Info("Initialized go-cache for in-memory result storage")
	return &ResultRepository{
		cache:  cache.New(cache.NoExpiration, 0),
		logger: logger.Named("MemoryResultStorage"),
	}
}

// GetChainRecord retrieves a stored chain record, returning found status.
func (r *ResultRepository) GetChainRecord(_ context.Context, chainID int64) (entity.ChainRecord, bool, error) {
	key := r.getChainRecordKey(chainID)
	if x, found := r.cache.Get(key); found {
		if record, ok := x.(entity.ChainRecord); ok {
			r.logger.Debug("Memory cache hit", zap.String("key", key))
			return record, true, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	r.logger.Debug("Memory cache miss", zap.String("key", key))
	return entity.ChainRecord{}, false, nil
}

// SaveChainRecord stores the chain record, replacing any previous one.
func (r *ResultRepository) SaveChainRecord(_ context.Context, record entity.ChainRecord) error {
	key := r.getChainRecordKey(record.Result.ChainID)
	r.cache.Set(key, record, cache.NoExpiration)
	r.logger.Debug("Memory cache set", zap.String("key", key))
	return nil
}

// GetMergedResults retrieves the stored merged document, returning found status.
func (r *ResultRepository) GetMergedResults(_ context.Context) (*entity.MergedResultSet, bool, error) {
	if x, found := r.cache.Get(mergedResultsKey); found {
		if merged, ok := x.(*entity.MergedResultSet); ok {
			return merged, true, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", mergedResultsKey), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	return nil, false, nil
}

// SaveMergedResults stores the merged document, replacing any previous one.
func (r *ResultRepository) SaveMergedResults(_ context.Context, merged *entity.MergedResultSet) error {
	r.cache.Set(mergedResultsKey, merged, cache.NoExpiration)
	r.logger.Debug("Memory cache set", zap.String("key", mergedResultsKey), zap.Int("chains", merged.Len()))
	return nil
}

// ChainCount returns the number of chain records stored.
func (r *ResultRepository) ChainCount() int {
	n := 0
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, chainRecordKeyPrefix) {
			n++
		}
	}
	return n
}

// getChainRecordKey generates the cache key for a specific chain's record.
func (r *ResultRepository) getChainRecordKey(chainID int64) string {
	return chainRecordKeyPrefix + strconv.FormatInt(chainID, 10)
}
