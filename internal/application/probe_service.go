package application

import (
	"context"
	"fmt"
	"time"

	"chainlist-prober/internal/application/port"
	"chainlist-prober/internal/config"
	"chainlist-prober/internal/domain/entity"
	domainRepo "chainlist-prober/internal/domain/repository"
	domainService "chainlist-prober/internal/domain/service"
	"chainlist-prober/internal/observability/metrics"
	"chainlist-prober/internal/pkg/workpool"

	"go.uber.org/zap"
)

// Compile-time check to ensure probeService implements ProbeService
var _ port.ProbeService = (*probeService)(nil)

// taskRunner matches workpool.Run for endpoint probes.
type taskRunner func(
	ctx context.Context,
	tasks []workpool.Task[entity.ProbeOutcome],
	limit int,
	opts ...workpool.Option,
) []workpool.Result[entity.ProbeOutcome]

// probeService implements the port.ProbeService interface orchestrating a probe run.
type probeService struct {
	chainRepo  domainRepo.ChainRepository
	resultRepo domainRepo.ResultRepository
	prober     domainService.EndpointProber
	metrics    *metrics.Metrics
	logger     *zap.Logger
	cfg        config.CheckerConfig
	runTasks   taskRunner
}

// NewProbeService creates a new instance of the probe service. m may be nil.
func NewProbeService(
	chainRepo domainRepo.ChainRepository,
	resultRepo domainRepo.ResultRepository,
	prober domainService.EndpointProber,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg config.CheckerConfig,
) port.ProbeService {
	return &probeService{
		chainRepo:  chainRepo,
		resultRepo: resultRepo,
		prober:     prober,
		metrics:    m,
		logger:     logger.Named("ProbeService"),
		cfg:        cfg,
		runTasks:   workpool.Run[entity.ProbeOutcome],
	}
}

// Run processes every selected chain in directory order, one at a time, and
// writes the merged document once after the last chain.
func (s *probeService) Run(ctx context.Context) (port.RunSummary, error) {
	var summary port.RunSummary
	startTime := time.Now()

	chains, err := s.chainRepo.GetAllChains(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch chain directory: %w", err)
	}

	selected := s.selectChains(chains)
	s.logger.Info("Starting probe run",
		zap.Int("directoryChains", len(chains)),
		zap.Int("selectedChains", len(selected)),
		zap.Int("concurrency", s.cfg.GetConcurrency()),
		zap.Bool("skipExisting", s.cfg.SkipExisting),
	)

	merged := entity.NewMergedResultSet()
	for i, chain := range selected {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("probe run interrupted before chain %d: %w", chain.ChainID, err)
		}

		if err := chain.Validate(); err != nil {
			s.logger.Warn("Skipping chain without a valid chain ID",
				zap.Int("index", i), zap.String("name", chain.Name), zap.Error(err),
			)
			summary.ChainsInvalid++
			continue
		}

		s.logger.Info("Processing chain",
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(selected))),
			zap.Int64("chainId", chain.ChainID),
			zap.String("name", chain.Name),
			zap.Int("urls", len(chain.RPC)),
		)

		report, err := s.processChain(ctx, chain)
		if err != nil {
			return summary, err
		}

		merged.Put(report.record)
		s.metrics.RecordChain(string(report.state))
		switch report.state {
		case entity.ChainSkipped:
			summary.ChainsSkipped++
		default:
			summary.ChainsWritten++
		}
		summary.URLsChecked += report.checked
		summary.URLsWorking += report.working
	}

	if err := s.resultRepo.SaveMergedResults(ctx, merged); err != nil {
		return summary, fmt.Errorf("failed to persist merged results: %w", err)
	}

	s.logger.Info("Probe run finished",
		zap.Int("chainsWritten", summary.ChainsWritten),
		zap.Int("chainsSkipped", summary.ChainsSkipped),
		zap.Int("chainsInvalid", summary.ChainsInvalid),
		zap.Int("urlsChecked", summary.URLsChecked),
		zap.Int("urlsWorking", summary.URLsWorking),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return summary, nil
}

// selectChains applies the chain ID allow-list, keeping directory order.
func (s *probeService) selectChains(chains []entity.Chain) []entity.Chain {
	if len(s.cfg.ChainIDs) == 0 {
		return chains
	}

	allowed := make(map[int64]bool, len(s.cfg.ChainIDs))
	for _, id := range s.cfg.ChainIDs {
		allowed[id] = false
	}

	selected := make([]entity.Chain, 0, len(s.cfg.ChainIDs))
	for _, chain := range chains {
		if _, ok := allowed[chain.ChainID]; ok {
			allowed[chain.ChainID] = true
			selected = append(selected, chain)
		}
	}

	for _, id := range s.cfg.ChainIDs {
		if !allowed[id] {
			s.logger.Warn("Requested chain not found in directory", zap.Int64("chainId", id))
		}
	}
	return selected
}
