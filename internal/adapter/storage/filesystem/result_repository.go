package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"chainlist-prober/internal/config"
	"chainlist-prober/internal/domain"
	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"

	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ResultRepository = (*ResultRepository)(nil)

// ResultRepository stores one pretty-printed JSON document per chain, named
// <chainId>.json, and a merged document in the same directory.
type ResultRepository struct {
	dir        string
	mergedFile string
	logger     *zap.Logger
}

// NewResultRepository creates a repository rooted at cfg.Dir.
func NewResultRepository(cfg config.OutputConfig, logger *zap.Logger) *ResultRepository {
	mergedFile := cfg.MergedFile
	if mergedFile == "" {
		mergedFile = "all.json"
	}
	return &ResultRepository{
		dir:        cfg.Dir,
		mergedFile: mergedFile,
		logger:     logger.Named("FileResultStorage"),
	}
}

// ChainPath returns the file a chain's record is stored in.
func (r *ResultRepository) ChainPath(chainID int64) string {
	return filepath.Join(r.dir, strconv.FormatInt(chainID, 10)+".json")
}

// MergedPath returns the merged document's file.
func (r *ResultRepository) MergedPath() string {
	return filepath.Join(r.dir, r.mergedFile)
}

// GetChainRecord reads a chain record. The record's Raw field holds the file
// content compacted, so it can be re-emitted unchanged.
func (r *ResultRepository) GetChainRecord(_ context.Context, chainID int64) (entity.ChainRecord, bool, error) {
	path := r.ChainPath(chainID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entity.ChainRecord{}, false, nil
		}
		return entity.ChainRecord{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var result entity.ChainResult
	if err := json.Unmarshal(data, &result); err != nil {
		return entity.ChainRecord{}, true, fmt.Errorf("%w: %s: %v", domain.ErrRecordCorrupt, path, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return entity.ChainRecord{}, true, fmt.Errorf("%w: %s: %v", domain.ErrRecordCorrupt, path, err)
	}

	r.logger.Debug("Loaded existing chain record", zap.String("path", path))
	return entity.ChainRecord{Result: result, Raw: compact.Bytes()}, true, nil
}

// SaveChainRecord writes the record to <chainId>.json.
func (r *ResultRepository) SaveChainRecord(_ context.Context, record entity.ChainRecord) error {
	path := r.ChainPath(record.Result.ChainID)
	if err := r.writeJSON(path, record.Raw); err != nil {
		return err
	}
	r.logger.Debug("Wrote chain record", zap.String("path", path), zap.Int("rpcs", len(record.Result.RPCs)))
	return nil
}

// GetMergedResults reads the merged document.
func (r *ResultRepository) GetMergedResults(_ context.Context) (*entity.MergedResultSet, bool, error) {
	path := r.MergedPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	merged := entity.NewMergedResultSet()
	if err := json.Unmarshal(data, merged); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", domain.ErrRecordCorrupt, path, err)
	}
	return merged, true, nil
}

// SaveMergedResults writes the merged document.
func (r *ResultRepository) SaveMergedResults(_ context.Context, merged *entity.MergedResultSet) error {
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode merged results: %w", err)
	}
	path := r.MergedPath()
	if err := r.writeJSON(path, data); err != nil {
		return err
	}
	r.logger.Info("Wrote merged results", zap.String("path", path), zap.Int("chains", merged.Len()))
	return nil
}

// writeJSON pretty-prints data and replaces path atomically.
func (r *ResultRepository) writeJSON(path string, data []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format %s: %w", path, err)
	}
	pretty.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
