package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// AllocateTerritoriesResult contains the outcome of an assignment run
type AllocateTerritoriesResult struct {
	RunID     string
	CreatedAt time.Time
	Committed bool

	// TargetARR is the per-rep target the run used (derived when not configured)
	TargetARR float64

	Outcome *allocator.AllocationOutcome
	Metrics allocator.OptimizationMetrics

	// Warnings lists configuration warnings followed by run warnings
	Warnings      []allocator.Warning
	WarningCounts map[allocator.WarningKind]int

	// Accounts maps account ID to the account record, for display
	Accounts map[string]*allocator.Account
}

// AllocateTerritoriesStore defines the database operations needed for an assignment run
type AllocateTerritoriesStore interface {
	LoadSnapshot(ctx context.Context) (*db.Snapshot, error)
	SaveRun(ctx context.Context, run *db.Run, results []db.AssignmentResult, warnings []db.WarningRecord) error
}

// AllocateTerritories scores every account against every active rep and commits the best match.
// If dryRun is true, the run is not saved to the database
func AllocateTerritories(ctx context.Context, store AllocateTerritoriesStore, cfg *config.Config, logger *zap.Logger, dryRun bool) (*AllocateTerritoriesResult, error) {
	logger.Debug("Starting territory allocation", zap.Bool("dry_run", dryRun))

	// Step 1: Load the snapshot once. Nothing is re-read mid-run.
	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "services: load snapshot")
	}
	logger.Debug("Loaded snapshot",
		zap.Int("accounts", len(snapshot.Accounts)),
		zap.Int("reps", len(snapshot.Reps)),
		zap.Int("rules", len(snapshot.Rules)),
		zap.Int("modifiers", len(snapshot.Modifiers)))

	// Step 2: Build criteria, modifiers and processing order
	plan := planRun(snapshot, cfg, nil)
	logger.Debug("Built run plan",
		zap.Int("criteria", len(plan.config.Criteria)),
		zap.Int("modifiers", len(plan.config.Modifiers)),
		zap.Int("config_warnings", len(plan.warnings)))

	// Step 3: Run the allocator
	outcome, err := allocator.Allocate(plan.config)
	if err != nil {
		return nil, eris.Wrap(err, "services: allocate")
	}

	// Step 4: Summarise balance
	metrics := allocator.Summarize(outcome, thresholdsFor(cfg, cfg.HardCutoffARR))

	warnings := make([]allocator.Warning, 0, len(plan.warnings)+len(outcome.Warnings))
	warnings = append(warnings, plan.warnings...)
	warnings = append(warnings, outcome.Warnings...)

	result := &AllocateTerritoriesResult{
		RunID:         uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		TargetARR:     outcome.State.TargetARR,
		Outcome:       outcome,
		Metrics:       metrics,
		Warnings:      warnings,
		WarningCounts: countWarnings(warnings),
		Accounts:      make(map[string]*allocator.Account, len(plan.ordered)),
	}
	for _, account := range plan.ordered {
		result.Accounts[account.ID] = account
	}

	logger.Info("Allocation complete",
		zap.String("run_id", result.RunID),
		zap.Int("assigned", metrics.AssignedCount),
		zap.Int("unassigned", metrics.UnassignedCount),
		zap.Int("warnings", len(warnings)),
		zap.Float64("arr_balance_score", metrics.ARRBalanceScore))

	if dryRun {
		logger.Info("Dry run - not saving run")
		return result, nil
	}

	// Step 5: Commit everything in one transaction
	run := &db.Run{
		ID:              result.RunID,
		CreatedAt:       result.CreatedAt,
		TargetARR:       result.TargetARR,
		HardCutoffARR:   cfg.HardCutoffARR,
		AssignedCount:   metrics.AssignedCount,
		UnassignedCount: metrics.UnassignedCount,
		ARRBalanceScore: metrics.ARRBalanceScore,
		GeoAlignmentPct: metrics.GeoAlignmentPct,
		ContinuityPct:   metrics.ContinuityPct,
	}
	if err := store.SaveRun(ctx, run,
		resultRecords(run.ID, plan.ordered, outcome),
		warningRecords(run.ID, warnings)); err != nil {
		return nil, eris.Wrap(err, "services: save run")
	}

	result.Committed = true
	logger.Debug("Run saved", zap.String("run_id", run.ID))

	return result, nil
}
