package services

import (
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// RunMetricsResult describes the balance of the latest committed run
type RunMetricsResult struct {
	Run      db.Run
	Metrics  allocator.OptimizationMetrics
	Warnings []db.WarningRecord

	// MissingAccounts lists result accounts no longer present in the snapshot
	MissingAccounts []string
}

// LatestRunStore defines the database operations needed to inspect the latest run
type LatestRunStore interface {
	LoadSnapshot(ctx context.Context) (*db.Snapshot, error)
	GetLatestRun(ctx context.Context) (*db.RunRecord, error)
}

// committedRun is a stored run rebuilt into allocator terms
type committedRun struct {
	record   *db.RunRecord
	outcome  *allocator.AllocationOutcome
	accounts map[string]*allocator.Account
	missing  []string
}

// LatestRunMetrics recomputes balance metrics for the latest committed run.
// Returns db.ErrNoRuns (wrapped) when nothing has been committed.
func LatestRunMetrics(ctx context.Context, store LatestRunStore, cfg *config.Config, logger *zap.Logger) (*RunMetricsResult, error) {
	committed, err := loadCommittedRun(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics := allocator.Summarize(committed.outcome, thresholdsFor(cfg, committed.record.Run.HardCutoffARR))

	logger.Debug("Computed metrics for latest run",
		zap.String("run_id", committed.record.Run.ID),
		zap.Float64("arr_balance_score", metrics.ARRBalanceScore),
		zap.Int("reps_in_band", metrics.RepsInBand))

	return &RunMetricsResult{
		Run:             committed.record.Run,
		Metrics:         metrics,
		Warnings:        committed.record.Warnings,
		MissingAccounts: committed.missing,
	}, nil
}

// loadCommittedRun replays the latest run's results over the current rep baseline
func loadCommittedRun(ctx context.Context, store LatestRunStore, cfg *config.Config, logger *zap.Logger) (*committedRun, error) {
	record, err := store.GetLatestRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "services: get latest run")
	}

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "services: load snapshot")
	}

	accounts := make(map[string]*allocator.Account, len(snapshot.Accounts))
	for _, account := range convertAccounts(snapshot.Accounts) {
		accounts[account.ID] = account
	}

	reps := convertReps(snapshot.Reps)
	slices.SortFunc(reps, func(a, b *allocator.Rep) int {
		return strings.Compare(a.ID, b.ID)
	})
	state := &allocator.RunState{
		Reps:             reps,
		TargetARR:        record.Run.TargetARR,
		CRECap:           cfg.CRECap,
		TerritoryRegions: cfg.TerritoryRegions,
	}
	if state.CRECap == 0 {
		state.CRECap = allocator.DefaultCRECap
	}

	outcome := &allocator.AllocationOutcome{
		State:       state,
		Assignments: []allocator.Assignment{},
		Unassigned:  []string{},
		Warnings:    []allocator.Warning{},
	}

	var missing []string
	for _, r := range record.Results {
		if r.RepID == "" {
			outcome.Unassigned = append(outcome.Unassigned, r.AccountID)
			continue
		}

		outcome.Assignments = append(outcome.Assignments, allocator.Assignment{
			AccountID:       r.AccountID,
			RepID:           r.RepID,
			PreviousOwnerID: r.PreviousOwnerID,
			RawScore:        r.RawScore,
			AdjustedScore:   r.AdjustedScore,
			FinalScore:      r.FinalScore,
			GeoMatch:        r.GeoMatch,
			Continuity:      r.Continuity,
			Tier:            allocator.PriorityTier(r.Tier),
			SoftBreach:      r.SoftBreach,
		})

		rep := state.RepByID(r.RepID)
		account, ok := accounts[r.AccountID]
		if !ok {
			missing = append(missing, r.AccountID)
			continue
		}
		if rep == nil {
			continue
		}
		rep.CurrentARR += account.ARR
		rep.AccountCount++
		if account.IsCRERisk() {
			rep.CRECount++
		}
	}

	if len(missing) > 0 {
		logger.Warn("Run references accounts missing from the snapshot",
			zap.String("run_id", record.Run.ID),
			zap.Int("missing", len(missing)))
	}

	return &committedRun{
		record:   record,
		outcome:  outcome,
		accounts: accounts,
		missing:  missing,
	}, nil
}
