package criteria

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// Weight keys and their defaults, per rule type
const (
	WeightTerritoryMatch  = "territoryMatch"
	WeightDistancePenalty = "distancePenalty"
	WeightContinuityBonus = "continuityBonus"
	WeightBalanceImpact   = "balanceImpact"
	WeightBalanceWeight   = "balanceWeight"

	DefaultTerritoryMatch  = 50.0
	DefaultDistancePenalty = -10.0
	DefaultContinuityBonus = 75.0
	DefaultBalanceImpact   = 30.0
	DefaultBalanceWeight   = 10.0
)

// defaultWeights lists the weights each rule type reads
var defaultWeights = map[allocator.RuleType]map[string]float64{
	allocator.RuleGeoFirst: {
		WeightTerritoryMatch:  DefaultTerritoryMatch,
		WeightDistancePenalty: DefaultDistancePenalty,
	},
	allocator.RuleContinuity: {
		WeightContinuityBonus: DefaultContinuityBonus,
	},
	allocator.RuleSmartBalance: {
		WeightBalanceImpact: DefaultBalanceImpact,
	},
	allocator.RuleCREBalance: {
		WeightBalanceWeight: DefaultBalanceWeight,
	},
	// TIER_BALANCE uses a fixed table and reads no weights
	allocator.RuleTierBalance: {},
}

// RuleMeta identifies the rule record a criterion was built from
type RuleMeta struct {
	ID       string
	Priority int
	Scope    allocator.Scope
}

// base implements the rule-derived parts of allocator.Criterion
type base struct {
	meta RuleMeta
}

func (b base) RuleID() string {
	return b.meta.ID
}

func (b base) Priority() int {
	return b.meta.Priority
}

func (b base) Scope() allocator.Scope {
	return b.meta.Scope
}

// FromRules builds criteria from rule records.
//
// Configuration problems never fail the build:
//   - disabled rules are dropped silently
//   - enabled rules with priority < 1 are skipped with an invalid_rule warning
//   - unknown rule types are skipped with an unknown_rule warning
//   - missing weight keys use the documented default with a config_default warning
//
// Criteria are returned in ascending priority order, ties by rule ID.
func FromRules(rules []allocator.AssignmentRule) ([]allocator.Criterion, []allocator.Warning) {
	var criteria []allocator.Criterion
	var warnings []allocator.Warning

	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b allocator.AssignmentRule) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return strings.Compare(a.ID, b.ID)
	})

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}

		if rule.Priority < 1 {
			warnings = append(warnings, ruleWarning(allocator.WarningInvalidRule, rule,
				fmt.Sprintf("rule %s has priority %d; priority must be >= 1", rule.ID, rule.Priority)))
			continue
		}

		defaults, known := defaultWeights[normaliseType(rule.Type)]
		if !known {
			warnings = append(warnings, ruleWarning(allocator.WarningUnknownRule, rule,
				fmt.Sprintf("rule %s has unknown type %q and was skipped", rule.ID, rule.Type)))
			continue
		}

		weights, defaulted := resolveWeights(rule.Weights, defaults)
		for _, key := range defaulted {
			warnings = append(warnings, ruleWarning(allocator.WarningConfigDefault, rule,
				fmt.Sprintf("rule %s is missing weight %q; using default %g", rule.ID, key, defaults[key])))
		}

		meta := RuleMeta{ID: rule.ID, Priority: rule.Priority, Scope: rule.Scope}
		switch normaliseType(rule.Type) {
		case allocator.RuleGeoFirst:
			criteria = append(criteria, NewGeoFirstCriterion(meta, weights[WeightTerritoryMatch], weights[WeightDistancePenalty]))
		case allocator.RuleContinuity:
			criteria = append(criteria, NewContinuityCriterion(meta, weights[WeightContinuityBonus]))
		case allocator.RuleSmartBalance:
			criteria = append(criteria, NewSmartBalanceCriterion(meta, weights[WeightBalanceImpact]))
		case allocator.RuleCREBalance:
			criteria = append(criteria, NewCREBalanceCriterion(meta, weights[WeightBalanceWeight]))
		case allocator.RuleTierBalance:
			criteria = append(criteria, NewTierBalanceCriterion(meta))
		}
	}

	return criteria, warnings
}

// resolveWeights fills missing keys from defaults and reports which keys were defaulted,
// in sorted order
func resolveWeights(configured, defaults map[string]float64) (map[string]float64, []string) {
	resolved := make(map[string]float64, len(defaults))
	var defaulted []string
	for key, def := range defaults {
		if v, ok := configured[key]; ok {
			resolved[key] = v
			continue
		}
		resolved[key] = def
		defaulted = append(defaulted, key)
	}
	slices.Sort(defaulted)
	return resolved, defaulted
}

func normaliseType(t allocator.RuleType) allocator.RuleType {
	return allocator.RuleType(strings.ToUpper(strings.TrimSpace(string(t))))
}

func ruleWarning(kind allocator.WarningKind, rule allocator.AssignmentRule, description string) allocator.Warning {
	w := allocator.NewWarning(kind, "", "", description)
	w.RuleID = rule.ID
	return w
}
