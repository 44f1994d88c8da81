package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/clients/anthropicclient"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// mockStore implements every store interface the services use
type mockStore struct {
	mu sync.Mutex

	snapshot  *db.Snapshot
	latestRun *db.RunRecord

	loadSnapshotErr error
	saveRunErr      error
	getLatestRunErr error

	loadCalls     int
	savedRun      *db.Run
	savedResults  []db.AssignmentResult
	savedWarnings []db.WarningRecord
}

func (m *mockStore) LoadSnapshot(ctx context.Context) (*db.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	if m.loadSnapshotErr != nil {
		return nil, m.loadSnapshotErr
	}
	return m.snapshot, nil
}

func (m *mockStore) SaveRun(ctx context.Context, run *db.Run, results []db.AssignmentResult, warnings []db.WarningRecord) error {
	if m.saveRunErr != nil {
		return m.saveRunErr
	}
	m.savedRun = run
	m.savedResults = results
	m.savedWarnings = warnings
	return nil
}

func (m *mockStore) GetLatestRun(ctx context.Context) (*db.RunRecord, error) {
	if m.getLatestRunErr != nil {
		return nil, m.getLatestRunErr
	}
	if m.latestRun == nil {
		return nil, db.ErrNoRuns
	}
	return m.latestRun, nil
}

// mockAnthropicClient implements anthropicclient.Client for testing
type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropicclient.MessageRequest) (*anthropicclient.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropicclient.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropicclient.MessageResponse {
	return &anthropicclient.MessageResponse{
		ID:         "msg_test",
		Model:      "claude-test",
		Content:    []anthropicclient.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropicclient.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// testSnapshot has two active reps (east-1, west-1), one inactive rep and four accounts
func testSnapshot() *db.Snapshot {
	return &db.Snapshot{
		Accounts: []db.Account{
			{ID: "acc-1", Name: "Acme", ARR: 300, Territory: "NY", Tier: 1, CurrentOwnerID: "east-1", OwnerTenureDays: 400},
			{ID: "acc-2", Name: "Globex", ARR: 200, Territory: "CA", Tier: 2, CurrentOwnerID: "west-1", OwnerTenureDays: 200},
			{ID: "acc-3", Name: "Initech", ARR: 100, Territory: "CA", Tier: 3, CRERisk: true},
			{ID: "acc-4", Name: "Umbrella", ARR: 50, Territory: "NY", Tier: 4, CurrentOwnerID: "west-1", OwnerTenureDays: 30},
		},
		Reps: []db.Rep{
			{ID: "west-1", Name: "Wendy", Region: "West", Active: true, Pool: "Normal"},
			{ID: "east-1", Name: "Eric", Region: "East", Active: true, Pool: "normal"},
			{ID: "west-2", Name: "Walt", Region: "West", Active: false},
		},
		Rules: []db.AssignmentRule{
			{ID: "rule-geo", RuleType: "GEO_FIRST", Priority: 1, Enabled: true,
				Weights: map[string]float64{"territoryMatch": 50, "distancePenalty": -10}},
			{ID: "rule-continuity", RuleType: "CONTINUITY", Priority: 2, Enabled: true,
				Weights: map[string]float64{"continuityBonus": 75}},
			{ID: "rule-balance", RuleType: "SMART_BALANCE", Priority: 3, Enabled: true,
				Weights: map[string]float64{"balanceImpact": 30}},
		},
		Modifiers: []db.ConditionalModifier{
			{ID: "mod-bad", Name: "Bad", Condition: "moon_phase", Action: "add_penalty", Value: floatPtr(5), Position: 2},
			{ID: "mod-owner", Name: "Prefer owner", Condition: "not_current_owner", Action: "MULTIPLY_SCORE", Value: floatPtr(0.9), Position: 1},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:             "postgres://test",
		MinThresholdARR:         250,
		PreferredMaxARR:         400,
		CRECap:                  3,
		ContinuityThresholdDays: 90,
		TerritoryRegions: map[string]string{
			"NY": "East",
			"CA": "West",
		},
		Anthropic: &config.AnthropicConfig{
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Model:     "claude-test",
			MaxTokens: 1024,
			BatchSize: 1,
		},
		Scenarios: []config.ScenarioConfig{
			{Name: "no-geo", DisabledRules: []string{"rule-geo"}},
			{Name: "heavy-balance", Weights: map[string]map[string]float64{"SMART_BALANCE": {"balanceImpact": 500}}},
		},
		ScenarioConcurrency: 2,
	}
}
