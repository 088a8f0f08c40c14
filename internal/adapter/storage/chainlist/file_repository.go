package chainlist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"
	"chainlist-prober/internal/pkg/apperrors"

	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ChainRepository = (*FileRepository)(nil)

// FileRepository reads the chain directory from a local JSON or YAML file.
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileRepository creates a repository for the directory file at path.
func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	return &FileRepository{
		path:   path,
		logger: logger.Named("ChainlistFile"),
	}
}

// GetAllChains reads and parses the directory file. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func (r *FileRepository) GetAllChains(_ context.Context) ([]entity.Chain, error) {
	body, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: chain directory file %s", apperrors.ErrNotFound, r.path)
		}
		return nil, fmt.Errorf("failed to read chain directory file %s: %w", r.path, err)
	}

	var chains []entity.Chain
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".yaml", ".yml":
		chains, err = parseYAMLDirectory(body, r.logger)
	default:
		chains, err = parseJSONDirectory(body, r.logger)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("Loaded chains from file", zap.String("path", r.path), zap.Int("count", len(chains)))
	return chains, nil
}
