package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockCriterion is a simple test criterion
type mockCriterion struct {
	name     string
	priority int
	scope    Scope
	score    float64
	scoreFn  func(state *RunState, account *Account, rep *Rep) float64
}

func (m *mockCriterion) Name() string {
	return m.name
}

func (m *mockCriterion) RuleID() string {
	return "rule_" + m.name
}

func (m *mockCriterion) Priority() int {
	return m.priority
}

func (m *mockCriterion) Scope() Scope {
	return m.scope
}

func (m *mockCriterion) Score(state *RunState, account *Account, rep *Rep) float64 {
	if m.scoreFn != nil {
		return m.scoreFn(state, account, rep)
	}
	return m.score
}

// favourRep returns a criterion that scores the given rep highly and everyone else low
func favourRep(repID string, high, low float64) *mockCriterion {
	return &mockCriterion{
		name:     "favour_" + repID,
		priority: 1,
		scoreFn: func(state *RunState, account *Account, rep *Rep) float64 {
			if rep.ID == repID {
				return high
			}
			return low
		},
	}
}

func ptr(v float64) *float64 {
	return &v
}

func TestPriorityMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, PriorityMultiplier(1))
	assert.Equal(t, 0.5, PriorityMultiplier(2))
	assert.InDelta(t, 0.3333333333, PriorityMultiplier(3), 1e-9)
	assert.Equal(t, 0.25, PriorityMultiplier(4))
}

func TestPriorityMultiplier_IsReciprocalOfPriority(t *testing.T) {
	for p := 1; p <= 100; p++ {
		assert.Equal(t, 1/float64(p), PriorityMultiplier(p), "priority %d", p)
	}
}

func TestPriorityMultiplier_NonPositivePriority(t *testing.T) {
	assert.Equal(t, 0.0, PriorityMultiplier(0))
	assert.Equal(t, 0.0, PriorityMultiplier(-2))
}

func TestScoreCandidate_NoCriteria(t *testing.T) {
	state := &RunState{}
	score := ScoreCandidate(state, &Account{ID: "acc1"}, &Rep{ID: "rep1"}, []Criterion{})
	assert.Equal(t, 0.0, score)
}

func TestScoreCandidate_SumsPriorityWeightedScores(t *testing.T) {
	state := &RunState{}
	criteria := []Criterion{
		&mockCriterion{name: "geo", priority: 1, score: 50},
		&mockCriterion{name: "continuity", priority: 2, score: 75},
		&mockCriterion{name: "balance", priority: 3, score: 30},
	}

	// 50*1.0 + 75*0.5 + 30*(1/3) = 97.5
	score := ScoreCandidate(state, &Account{ID: "acc1"}, &Rep{ID: "rep1"}, criteria)
	assert.InDelta(t, 97.5, score, 1e-9)
}

func TestScoreCandidate_SkipsCriteriaOutOfScope(t *testing.T) {
	state := &RunState{}
	criteria := []Criterion{
		&mockCriterion{name: "emea_only", priority: 1, score: 50, scope: Scope{Territories: []string{"EMEA"}}},
		&mockCriterion{name: "all", priority: 2, score: 10},
	}

	amer := &Account{ID: "acc1", Territory: "AMER"}
	emea := &Account{ID: "acc2", Territory: "emea"}

	assert.Equal(t, 5.0, ScoreCandidate(state, amer, &Rep{ID: "rep1"}, criteria))
	assert.Equal(t, 55.0, ScoreCandidate(state, emea, &Rep{ID: "rep1"}, criteria))
}

func TestScope_Matches(t *testing.T) {
	account := &Account{ID: "acc1", Territory: "West", Tier: 2, ARR: 500_000}

	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{"empty scope", Scope{}, true},
		{"territory match", Scope{Territories: []string{"east", "west"}}, true},
		{"territory miss", Scope{Territories: []string{"east"}}, false},
		{"tier match", Scope{Tiers: []int{1, 2}}, true},
		{"tier miss", Scope{Tiers: []int{3}}, false},
		{"within ARR band", Scope{MinARR: ptr(100_000), MaxARR: ptr(1_000_000)}, true},
		{"below min ARR", Scope{MinARR: ptr(600_000)}, false},
		{"above max ARR", Scope{MaxARR: ptr(400_000)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Matches(account))
		})
	}
}

func TestRunState_IsGeoMatch(t *testing.T) {
	state := &RunState{
		TerritoryRegions: map[string]string{
			"California": "West",
			"New York":   "East",
		},
	}

	assert.True(t, state.IsGeoMatch(&Account{Territory: "California"}, &Rep{Region: "West"}))
	assert.True(t, state.IsGeoMatch(&Account{Territory: "new york"}, &Rep{Region: "east"}))
	assert.False(t, state.IsGeoMatch(&Account{Territory: "California"}, &Rep{Region: "East"}))

	// Unmapped territories compare directly against the region
	assert.True(t, state.IsGeoMatch(&Account{Territory: "Central"}, &Rep{Region: "central"}))

	// Missing data never matches
	assert.False(t, state.IsGeoMatch(&Account{Territory: ""}, &Rep{Region: ""}))
}
