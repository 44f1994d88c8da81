package services

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// BaselineScenario is the name of the run using the live configuration
const BaselineScenario = "baseline"

const defaultScenarioConcurrency = 4

// ScenarioResult is the outcome of one what-if run
type ScenarioResult struct {
	Name    string
	Metrics allocator.OptimizationMetrics

	TargetARR     float64
	WarningCounts map[allocator.WarningKind]int

	// Moves counts accounts assigned to a different rep than in the baseline
	Moves int
}

// RunScenarios runs the baseline and each named scenario against one snapshot.
// Runs are independent and execute concurrently; nothing is saved.
// An empty names list runs every configured scenario.
func RunScenarios(ctx context.Context, store db.SnapshotStore, cfg *config.Config, logger *zap.Logger, names []string) ([]ScenarioResult, error) {
	scenarios, err := selectScenarios(cfg.Scenarios, names)
	if err != nil {
		return nil, err
	}

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "services: load snapshot")
	}

	concurrency := cfg.ScenarioConcurrency
	if concurrency <= 0 {
		concurrency = defaultScenarioConcurrency
	}

	logger.Debug("Running scenarios",
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", concurrency))

	// Index 0 is the baseline
	results := make([]ScenarioResult, len(scenarios)+1)
	assignments := make([]map[string]string, len(scenarios)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range results {
		var scenario *config.ScenarioConfig
		name := BaselineScenario
		if i > 0 {
			scenario = &scenarios[i-1]
			name = scenario.Name
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			plan := planRun(snapshot, cfg, scenario)
			outcome, err := allocator.Allocate(plan.config)
			if err != nil {
				return eris.Wrapf(err, "services: scenario %s", name)
			}

			hardCutoff := plan.config.HardCutoffARR
			warnings := append(slices.Clone(plan.warnings), outcome.Warnings...)
			results[i] = ScenarioResult{
				Name:          name,
				Metrics:       allocator.Summarize(outcome, thresholdsFor(cfg, hardCutoff)),
				TargetARR:     outcome.State.TargetARR,
				WarningCounts: countWarnings(warnings),
			}
			assignments[i] = outcome.AssignmentMap()

			logger.Debug("Scenario complete",
				zap.String("scenario", name),
				zap.Float64("arr_balance_score", results[i].Metrics.ARRBalanceScore))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "services: run scenarios")
	}

	baseline := assignments[0]
	for i := 1; i < len(results); i++ {
		results[i].Moves = countMoves(baseline, assignments[i])
	}

	return results, nil
}

func selectScenarios(configured []config.ScenarioConfig, names []string) ([]config.ScenarioConfig, error) {
	if len(names) == 0 {
		return configured, nil
	}

	selected := make([]config.ScenarioConfig, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(configured, func(s config.ScenarioConfig) bool {
			return s.Name == name
		})
		if idx < 0 {
			return nil, eris.Errorf("services: unknown scenario %q", name)
		}
		selected = append(selected, configured[idx])
	}
	return selected, nil
}

// countMoves counts accounts whose rep differs between two runs.
// An account assigned in one run but not the other counts as moved.
func countMoves(baseline, other map[string]string) int {
	moves := 0
	for accountID, repID := range other {
		if baseline[accountID] != repID {
			moves++
		}
	}
	for accountID := range baseline {
		if _, ok := other[accountID]; !ok {
			moves++
		}
	}
	return moves
}
