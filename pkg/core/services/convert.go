package services

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator/criteria"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// runPlan is everything needed to run the allocator once
type runPlan struct {
	config   allocator.AllocationConfig
	ordered  []*allocator.Account
	warnings []allocator.Warning
}

// planRun converts a snapshot into an allocation config.
// A non-nil scenario overrides the live settings before the run is built.
func planRun(snapshot *db.Snapshot, cfg *config.Config, scenario *config.ScenarioConfig) runPlan {
	rules := convertRules(snapshot.Rules)
	targetARR, hardCutoffARR, creCap := cfg.TargetARR, cfg.HardCutoffARR, cfg.CRECap
	if scenario != nil {
		rules = applyScenarioRules(rules, scenario)
		if scenario.TargetARR > 0 {
			targetARR = scenario.TargetARR
		}
		if scenario.HardCutoffARR > 0 {
			hardCutoffARR = scenario.HardCutoffARR
		}
		if scenario.CRECap > 0 {
			creCap = scenario.CRECap
		}
	}

	crit, warnings := criteria.FromRules(rules)
	modifiers, modifierWarnings := convertModifiers(snapshot.Modifiers)
	warnings = append(warnings, modifierWarnings...)

	accounts := convertAccounts(snapshot.Accounts)
	ordered := allocator.OrderAccounts(accounts, crit)

	return runPlan{
		config: allocator.AllocationConfig{
			Accounts:                ordered,
			Reps:                    convertReps(snapshot.Reps),
			Criteria:                crit,
			Modifiers:               modifiers,
			TargetARR:               targetARR,
			HardCutoffARR:           hardCutoffARR,
			CRECap:                  creCap,
			ContinuityThresholdDays: cfg.ContinuityThresholdDays,
			TerritoryRegions:        cfg.TerritoryRegions,
		},
		ordered:  ordered,
		warnings: warnings,
	}
}

// thresholdsFor builds the metric bands from config and a hard cutoff
func thresholdsFor(cfg *config.Config, hardCutoffARR float64) allocator.BalanceThresholds {
	return allocator.BalanceThresholds{
		MinThresholdARR: cfg.MinThresholdARR,
		PreferredMaxARR: cfg.PreferredMaxARR,
		HardCutoffARR:   hardCutoffARR,
	}
}

func convertAccounts(accounts []db.Account) []*allocator.Account {
	result := make([]*allocator.Account, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, &allocator.Account{
			ID:               a.ID,
			Name:             a.Name,
			ARR:              a.ARR,
			ATR:              a.ATR,
			Territory:        a.Territory,
			Tier:             a.Tier,
			CRERisk:          a.CRERisk,
			CRECount:         a.CRECount,
			CurrentOwnerID:   a.CurrentOwnerID,
			ProposedOwnerID:  a.ProposedOwnerID,
			ParentID:         a.ParentID,
			IsSplitOwnership: a.IsSplitOwnership,
			OwnerTenureDays:  a.OwnerTenureDays,
		})
	}
	return result
}

func convertReps(reps []db.Rep) []*allocator.Rep {
	result := make([]*allocator.Rep, 0, len(reps))
	for _, r := range reps {
		pool := strings.ToLower(r.Pool)
		if pool == "" {
			pool = allocator.PoolNormal
		}
		result = append(result, &allocator.Rep{
			ID:           r.ID,
			Name:         r.Name,
			Region:       r.Region,
			Active:       r.Active,
			Pool:         pool,
			CurrentARR:   r.CurrentARR,
			AccountCount: r.AccountCount,
			CRECount:     r.CRECount,
		})
	}
	return result
}

func convertRules(rules []db.AssignmentRule) []allocator.AssignmentRule {
	result := make([]allocator.AssignmentRule, 0, len(rules))
	for _, r := range rules {
		result = append(result, allocator.AssignmentRule{
			ID:       r.ID,
			Type:     allocator.RuleType(r.RuleType),
			Priority: r.Priority,
			Enabled:  r.Enabled,
			Weights:  maps.Clone(r.Weights),
			Scope: allocator.Scope{
				Territories: slices.Clone(r.Scope.Territories),
				Tiers:       slices.Clone(r.Scope.Tiers),
				MinARR:      r.Scope.MinARR,
				MaxARR:      r.Scope.MaxARR,
			},
		})
	}
	return result
}

// applyScenarioRules disables rules and overrides weights by rule type.
// The input rules are already private copies.
func applyScenarioRules(rules []allocator.AssignmentRule, scenario *config.ScenarioConfig) []allocator.AssignmentRule {
	for i := range rules {
		rule := &rules[i]
		if slices.Contains(scenario.DisabledRules, rule.ID) {
			rule.Enabled = false
		}
		for ruleType, weights := range scenario.Weights {
			if !strings.EqualFold(ruleType, string(rule.Type)) {
				continue
			}
			if rule.Weights == nil {
				rule.Weights = make(map[string]float64, len(weights))
			}
			maps.Copy(rule.Weights, weights)
		}
	}
	return rules
}

// convertModifiers parses stored modifiers in position order.
// A modifier whose condition cannot be parsed is dropped with an invalid_modifier warning.
func convertModifiers(modifiers []db.ConditionalModifier) ([]allocator.Modifier, []allocator.Warning) {
	sorted := slices.Clone(modifiers)
	slices.SortStableFunc(sorted, func(a, b db.ConditionalModifier) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), strings.Compare(a.ID, b.ID))
	})

	var result []allocator.Modifier
	var warnings []allocator.Warning
	for _, m := range sorted {
		condition, err := allocator.ParseCondition(m.Condition)
		if err != nil {
			warnings = append(warnings, allocator.Warning{
				Kind:        allocator.WarningInvalidModifier,
				Severity:    allocator.SeverityLow,
				RuleID:      m.ID,
				Description: fmt.Sprintf("modifier %s skipped: %v", m.ID, err),
			})
			continue
		}
		result = append(result, allocator.Modifier{
			ID:        m.ID,
			Name:      m.Name,
			Condition: condition,
			Action:    allocator.ModifierAction(strings.ToLower(strings.TrimSpace(m.Action))),
			Value:     m.Value,
		})
	}
	return result, warnings
}

// resultRecords lists one result per account in processing order.
// Unassigned accounts get a record with an empty rep.
func resultRecords(runID string, ordered []*allocator.Account, outcome *allocator.AllocationOutcome) []db.AssignmentResult {
	assigned := make(map[string]allocator.Assignment, len(outcome.Assignments))
	for _, a := range outcome.Assignments {
		assigned[a.AccountID] = a
	}

	records := make([]db.AssignmentResult, 0, len(ordered))
	for _, account := range ordered {
		a, ok := assigned[account.ID]
		if !ok {
			records = append(records, db.AssignmentResult{
				RunID:           runID,
				AccountID:       account.ID,
				PreviousOwnerID: account.CurrentOwnerID,
			})
			continue
		}
		records = append(records, db.AssignmentResult{
			RunID:           runID,
			AccountID:       a.AccountID,
			RepID:           a.RepID,
			PreviousOwnerID: a.PreviousOwnerID,
			RawScore:        a.RawScore,
			AdjustedScore:   a.AdjustedScore,
			FinalScore:      a.FinalScore,
			GeoMatch:        a.GeoMatch,
			Continuity:      a.Continuity,
			Tier:            string(a.Tier),
			SoftBreach:      a.SoftBreach,
		})
	}
	return records
}

func warningRecords(runID string, warnings []allocator.Warning) []db.WarningRecord {
	records := make([]db.WarningRecord, 0, len(warnings))
	for _, w := range warnings {
		records = append(records, db.WarningRecord{
			ID:          uuid.New().String(),
			RunID:       runID,
			Kind:        string(w.Kind),
			Severity:    string(w.Severity),
			AccountID:   w.AccountID,
			RepID:       w.RepID,
			RuleID:      w.RuleID,
			Description: w.Description,
		})
	}
	return records
}

// countWarnings groups warnings by kind
func countWarnings(warnings []allocator.Warning) map[allocator.WarningKind]int {
	counts := make(map[allocator.WarningKind]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	return counts
}
