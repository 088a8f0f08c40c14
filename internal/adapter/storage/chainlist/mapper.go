package chainlist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	dto "chainlist-prober/internal/adapter/storage/chainlist/dto"
	"chainlist-prober/internal/domain"
	"chainlist-prober/internal/domain/entity"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// parseJSONDirectory decodes a JSON array of chain descriptors. Elements that
// cannot be decoded become chains without an ID so the caller can skip them.
func parseJSONDirectory(body []byte, logger *zap.Logger) ([]entity.Chain, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of chains", domain.ErrInvalidDirectory)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: failed to parse chain list: %v", domain.ErrInvalidDirectory, err)
	}

	rawChains := make([]dto.ChainRaw, len(elements))
	for i, element := range elements {
		if err := json.Unmarshal(element, &rawChains[i]); err != nil {
			logger.Warn("Chain descriptor could not be decoded", zap.Int("index", i), zap.Error(err))
			rawChains[i] = dto.ChainRaw{}
		}
	}
	return toDomainChains(rawChains), nil
}

// parseYAMLDirectory decodes a YAML sequence of chain descriptors.
func parseYAMLDirectory(body []byte, logger *zap.Logger) ([]entity.Chain, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse chain list: %v", domain.ErrInvalidDirectory, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a YAML sequence of chains", domain.ErrInvalidDirectory)
	}

	rawChains := make([]dto.ChainRaw, len(root.Content))
	for i, node := range root.Content {
		if err := node.Decode(&rawChains[i]); err != nil {
			logger.Warn("Chain descriptor could not be decoded", zap.Int("index", i), zap.Error(err))
			rawChains[i] = dto.ChainRaw{}
		}
	}
	return toDomainChains(rawChains), nil
}

// toDomainChains converts raw descriptors to domain chains. Invalid IDs map to
// zero, RPC order and duplicates are preserved, invalid entries are dropped.
func toDomainChains(rawChains []dto.ChainRaw) []entity.Chain {
	domainChains := make([]entity.Chain, 0, len(rawChains))
	for _, raw := range rawChains {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			name = entity.UnknownChainName
		}

		rpcs := make([]entity.RPCURL, 0, len(raw.RPC))
		for _, entry := range raw.RPC {
			if !entry.Valid {
				continue
			}
			rpcs = append(rpcs, entity.RPCURL(entry.URL))
		}

		chain := entity.Chain{Name: name, RPC: rpcs}
		if raw.ChainID.Valid {
			chain.ChainID = raw.ChainID.Value
		}
		domainChains = append(domainChains, chain)
	}
	return domainChains
}
