package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

func latestRunRecord() *db.RunRecord {
	return &db.RunRecord{
		Run: db.Run{
			ID:            "run-1",
			CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			TargetARR:     325,
			HardCutoffARR: 320,
		},
		Results: []db.AssignmentResult{
			{RunID: "run-1", AccountID: "acc-1", RepID: "east-1", PreviousOwnerID: "east-1", GeoMatch: true, Continuity: true, Tier: "P1"},
			{RunID: "run-1", AccountID: "acc-2", RepID: "west-1", PreviousOwnerID: "west-1", GeoMatch: true, Continuity: true, Tier: "P1"},
			{RunID: "run-1", AccountID: "acc-3", RepID: "west-1", GeoMatch: true, Tier: "P2"},
			{RunID: "run-1", AccountID: "acc-4", PreviousOwnerID: "west-1"},
			{RunID: "run-1", AccountID: "acc-9", RepID: "east-1", Tier: "P4"},
		},
		Warnings: []db.WarningRecord{
			{ID: "w-1", RunID: "run-1", Kind: "unassigned", Severity: "high", AccountID: "acc-4"},
		},
	}
}

func TestLatestRunMetrics_ReplaysResults(t *testing.T) {
	store := &mockStore{snapshot: testSnapshot(), latestRun: latestRunRecord()}

	result, err := LatestRunMetrics(context.Background(), store, testConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.Run.ID)
	assert.Equal(t, []string{"acc-9"}, result.MissingAccounts)
	assert.Len(t, result.Warnings, 1)

	m := result.Metrics
	assert.Equal(t, 4, m.AssignedCount)
	assert.Equal(t, 1, m.UnassignedCount)
	assert.InDelta(t, 75.0, m.GeoAlignmentPct, 1e-9)
	assert.InDelta(t, 50.0, m.ContinuityPct, 1e-9)
	assert.InDelta(t, 50.0, m.TierRates[allocator.TierContinuityGeo], 1e-9)
	assert.InDelta(t, 25.0, m.TierRates[allocator.TierGeoOnly], 1e-9)
	assert.InDelta(t, 25.0, m.TierRates[allocator.TierFallback], 1e-9)

	// east-1 holds acc-1 (300); acc-9 is gone from the snapshot. west-1 holds acc-2 + acc-3.
	require.Len(t, m.RepLoads, 2)
	east, west := m.RepLoads[0], m.RepLoads[1]
	assert.Equal(t, "east-1", east.RepID)
	assert.Equal(t, 300.0, east.ARR)
	assert.Equal(t, 1, east.AccountCount)
	assert.Equal(t, "west-1", west.RepID)
	assert.Equal(t, 300.0, west.ARR)
	assert.Equal(t, 2, west.AccountCount)
	assert.Equal(t, 1, west.CRECount)

	assert.InDelta(t, 100.0, m.ARRBalanceScore, 1e-9)
	assert.Equal(t, allocator.CutoffUnder, east.CutoffStatus, "cutoff comes from the stored run")
	assert.Equal(t, 2, m.RepsInBand)
}

func TestLatestRunMetrics_NoRuns(t *testing.T) {
	store := &mockStore{snapshot: testSnapshot()}

	_, err := LatestRunMetrics(context.Background(), store, testConfig(), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNoRuns)
	assert.Equal(t, 0, store.loadCalls, "snapshot is not read without a run")
}

func TestLatestRunMetrics_SnapshotError(t *testing.T) {
	loadErr := errors.New("timeout")
	store := &mockStore{latestRun: latestRunRecord(), loadSnapshotErr: loadErr}

	_, err := LatestRunMetrics(context.Background(), store, testConfig(), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
}

func TestLatestRunMetrics_CutoffOverFromRun(t *testing.T) {
	record := latestRunRecord()
	record.Run.HardCutoffARR = 250
	store := &mockStore{snapshot: testSnapshot(), latestRun: record}

	result, err := LatestRunMetrics(context.Background(), store, testConfig(), zap.NewNop())
	require.NoError(t, err)

	for _, load := range result.Metrics.RepLoads {
		assert.Equal(t, allocator.CutoffOver, load.CutoffStatus, load.RepID)
	}
}
