package criteria

import (
	"testing"

	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(warnings []allocator.Warning) []allocator.WarningKind {
	out := make([]allocator.WarningKind, len(warnings))
	for i, w := range warnings {
		out[i] = w.Kind
	}
	return out
}

func TestFromRules_BuildsEachRuleType(t *testing.T) {
	rules := []AssignmentRule{
		{ID: "r5", Type: allocator.RuleTierBalance, Priority: 5, Enabled: true},
		{ID: "r1", Type: allocator.RuleGeoFirst, Priority: 1, Enabled: true,
			Weights: map[string]float64{WeightTerritoryMatch: 60, WeightDistancePenalty: -5}},
		{ID: "r2", Type: allocator.RuleContinuity, Priority: 2, Enabled: true,
			Weights: map[string]float64{WeightContinuityBonus: 80}},
		{ID: "r3", Type: allocator.RuleSmartBalance, Priority: 3, Enabled: true,
			Weights: map[string]float64{WeightBalanceImpact: 25}},
		{ID: "r4", Type: allocator.RuleCREBalance, Priority: 4, Enabled: true,
			Weights: map[string]float64{WeightBalanceWeight: 12}},
	}

	criteria, warnings := FromRules(rules)

	assert.Empty(t, warnings)
	require.Len(t, criteria, 5)

	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{"GeoFirst", "Continuity", "SmartBalance", "CREBalance", "TierBalance"}, names)

	geo, ok := criteria[0].(*GeoFirstCriterion)
	require.True(t, ok)
	assert.Equal(t, 60.0, geo.territoryMatch)
	assert.Equal(t, -5.0, geo.distancePenalty)
	assert.Equal(t, "r1", geo.RuleID())
}

func TestFromRules_SkipsDisabledRulesSilently(t *testing.T) {
	criteria, warnings := FromRules([]AssignmentRule{
		{ID: "off", Type: allocator.RuleGeoFirst, Priority: 1, Enabled: false},
		{ID: "off-unknown", Type: "MYSTERY", Priority: 1, Enabled: false},
	})

	assert.Empty(t, criteria)
	assert.Empty(t, warnings)
}

func TestFromRules_MissingWeightsUseDefaults(t *testing.T) {
	criteria, warnings := FromRules([]AssignmentRule{
		{ID: "geo", Type: allocator.RuleGeoFirst, Priority: 1, Enabled: true,
			Weights: map[string]float64{WeightTerritoryMatch: 40}},
		{ID: "cont", Type: allocator.RuleContinuity, Priority: 2, Enabled: true},
	})

	require.Len(t, criteria, 2)

	geo := criteria[0].(*GeoFirstCriterion)
	assert.Equal(t, 40.0, geo.territoryMatch)
	assert.Equal(t, DefaultDistancePenalty, geo.distancePenalty)

	cont := criteria[1].(*ContinuityCriterion)
	assert.Equal(t, DefaultContinuityBonus, cont.continuityBonus)

	require.Len(t, warnings, 2)
	assert.Equal(t, []allocator.WarningKind{allocator.WarningConfigDefault, allocator.WarningConfigDefault}, kinds(warnings))
	assert.Equal(t, "geo", warnings[0].RuleID)
	assert.Contains(t, warnings[0].Description, WeightDistancePenalty)
	assert.Equal(t, "cont", warnings[1].RuleID)
	assert.Contains(t, warnings[1].Description, WeightContinuityBonus)
}

func TestFromRules_UnknownTypeIsSkippedWithWarning(t *testing.T) {
	criteria, warnings := FromRules([]AssignmentRule{
		{ID: "weird", Type: "ROUND_ROBIN", Priority: 1, Enabled: true},
		{ID: "cont", Type: allocator.RuleContinuity, Priority: 2, Enabled: true,
			Weights: map[string]float64{WeightContinuityBonus: 75}},
	})

	require.Len(t, criteria, 1)
	assert.Equal(t, "Continuity", criteria[0].Name())

	require.Len(t, warnings, 1)
	assert.Equal(t, allocator.WarningUnknownRule, warnings[0].Kind)
	assert.Equal(t, "weird", warnings[0].RuleID)
}

func TestFromRules_NonPositivePriorityIsSkippedWithWarning(t *testing.T) {
	criteria, warnings := FromRules([]AssignmentRule{
		{ID: "zero", Type: allocator.RuleTierBalance, Priority: 0, Enabled: true},
	})

	assert.Empty(t, criteria)
	require.Len(t, warnings, 1)
	assert.Equal(t, allocator.WarningInvalidRule, warnings[0].Kind)
}

func TestFromRules_NormalisesTypeAndOrdersByPriorityThenID(t *testing.T) {
	criteria, _ := FromRules([]AssignmentRule{
		{ID: "b", Type: "tier_balance", Priority: 2, Enabled: true},
		{ID: "a", Type: " Tier_Balance ", Priority: 2, Enabled: true},
		{ID: "c", Type: allocator.RuleTierBalance, Priority: 1, Enabled: true},
	})

	require.Len(t, criteria, 3)
	assert.Equal(t, "c", criteria[0].RuleID())
	assert.Equal(t, "a", criteria[1].RuleID())
	assert.Equal(t, "b", criteria[2].RuleID())
}

func TestFromRules_CarriesScope(t *testing.T) {
	scope := Scope{Territories: []string{"EMEA"}}
	criteria, _ := FromRules([]AssignmentRule{
		{ID: "emea", Type: allocator.RuleTierBalance, Priority: 1, Enabled: true, Scope: scope},
	})

	require.Len(t, criteria, 1)
	assert.Equal(t, scope, criteria[0].Scope())
}
