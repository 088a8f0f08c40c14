package application

import (
	"context"
	"fmt"
	"time"

	"chainlist-prober/internal/domain/entity"
	"chainlist-prober/internal/pkg/workpool"

	"go.uber.org/zap"
)

// probeSlack is added to the sum of the stage timeouts to bound one probe task.
const probeSlack = time.Second

type chainReport struct {
	record  entity.ChainRecord
	state   entity.ChainState
	checked int
	working int
}

// processChain moves one chain from pending to a terminal state: it reuses an
// existing record, writes an empty result, or probes every URL and writes the
// filtered result.
func (s *probeService) processChain(ctx context.Context, chain entity.Chain) (chainReport, error) {
	if s.cfg.SkipExisting {
		record, found, err := s.resultRepo.GetChainRecord(ctx, chain.ChainID)
		switch {
		case err != nil:
			s.logger.Warn("Existing chain record unusable, probing again",
				zap.Int64("chainId", chain.ChainID), zap.Error(err),
			)
		case found:
			record.Result.ChainID = chain.ChainID
			s.logger.Info("Chain skipped, record exists", zap.Int64("chainId", chain.ChainID))
			return chainReport{record: record, state: entity.ChainSkipped}, nil
		}
	}

	result := entity.NewChainResult(chain)
	state := entity.ChainEmptyWritten
	if len(chain.RPC) > 0 {
		result.RPCs = s.probeChain(ctx, chain)
		state = entity.ChainCheckedWritten
		if err := ctx.Err(); err != nil {
			return chainReport{}, fmt.Errorf("probing chain %d interrupted: %w", chain.ChainID, err)
		}
	}

	record, err := entity.NewChainRecord(result)
	if err != nil {
		return chainReport{}, err
	}
	if err := s.resultRepo.SaveChainRecord(ctx, record); err != nil {
		return chainReport{}, fmt.Errorf("failed to persist chain %d: %w", chain.ChainID, err)
	}

	s.logger.Info("Chain written",
		zap.Int64("chainId", chain.ChainID),
		zap.String("state", string(state)),
		zap.Int("working", len(result.RPCs)),
		zap.Int("total", len(chain.RPC)),
	)
	return chainReport{
		record:  record,
		state:   state,
		checked: len(chain.RPC),
		working: len(result.RPCs),
	}, nil
}

// probeChain probes every candidate URL through the bounded scheduler and
// returns the working ones in candidate order.
func (s *probeService) probeChain(ctx context.Context, chain entity.Chain) []entity.WorkingRPC {
	tasks := make([]workpool.Task[entity.ProbeOutcome], len(chain.RPC))
	for i, rpcURL := range chain.RPC {
		tasks[i] = func(ctx context.Context) (entity.ProbeOutcome, error) {
			return s.prober.Probe(ctx, rpcURL), nil
		}
	}

	budget := s.cfg.GetConnectTimeout() + s.cfg.GetRPCTimeout() + s.cfg.GetDNSTimeout() + probeSlack
	results := s.runTasks(ctx, tasks, s.cfg.GetConcurrency(),
		workpool.WithTaskTimeout(budget),
		workpool.WithLogger(s.logger),
	)

	working := make([]entity.WorkingRPC, 0, len(results))
	for i, res := range results {
		rpcURL := chain.RPC[i]
		if !res.OK() {
			s.logger.Warn("Probe did not complete",
				zap.Int64("chainId", chain.ChainID), zap.String("url", rpcURL.String()), zap.Error(res.Err),
			)
			s.metrics.RecordProbe(false, entity.StageConnectivity, false, 0)
			continue
		}

		outcome := res.Value
		s.logger.Info("URL checked",
			zap.Int64("chainId", chain.ChainID),
			zap.String("url", rpcURL.String()),
			zap.String(entity.StageConnectivity, passFail(outcome.Reachable, true)),
			zap.String(entity.StageRPC, passFail(outcome.RPCValid, outcome.Reachable)),
			zap.String(entity.StageIPv6, passFail(outcome.SupportsIPv6, outcome.Working())),
			zap.Duration("latency", outcome.Latency),
		)
		s.metrics.RecordProbe(outcome.Working(), outcome.FailedStage(), outcome.SupportsIPv6, outcome.Latency)

		if outcome.Working() {
			working = append(working, outcome.WorkingRPC())
		}
	}
	return working
}

func passFail(ok, reached bool) string {
	switch {
	case !reached:
		return "skipped"
	case ok:
		return "pass"
	default:
		return "fail"
	}
}
