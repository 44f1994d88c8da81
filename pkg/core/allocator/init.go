package allocator

import (
	"fmt"
	"slices"
	"strings"
)

// InitAllocation validates the config and builds the allocator with its run state.
// Reps are copied so the caller's records are never mutated.
func InitAllocation(config AllocationConfig) (*Allocator, error) {
	if config.CRECap < 0 {
		return nil, fmt.Errorf("%w: CRE cap must be >= 0, got %d", ErrInvalidConfig, config.CRECap)
	}
	if config.TargetARR < 0 {
		return nil, fmt.Errorf("%w: target ARR must be >= 0, got %.2f", ErrInvalidConfig, config.TargetARR)
	}
	if config.HardCutoffARR < 0 {
		return nil, fmt.Errorf("%w: hard cutoff must be >= 0, got %.2f", ErrInvalidConfig, config.HardCutoffARR)
	}

	seen := make(map[string]bool, len(config.Reps))
	reps := make([]*Rep, 0, len(config.Reps))
	for _, rep := range config.Reps {
		if rep == nil {
			continue
		}
		if seen[rep.ID] {
			return nil, fmt.Errorf("%w: duplicate rep ID %q", ErrInvalidConfig, rep.ID)
		}
		seen[rep.ID] = true
		reps = append(reps, rep.clone())
	}
	slices.SortFunc(reps, func(a, b *Rep) int {
		return strings.Compare(a.ID, b.ID)
	})

	creCap := config.CRECap
	if creCap == 0 {
		creCap = DefaultCRECap
	}

	state := &RunState{
		Reps:             reps,
		CRECap:           creCap,
		TerritoryRegions: config.TerritoryRegions,
	}

	state.TargetARR = config.TargetARR
	if state.TargetARR == 0 {
		state.TargetARR = deriveTargetARR(state, config.Accounts)
	}

	allocator := &Allocator{
		criteria:                config.Criteria,
		state:                   state,
		hardCutoffARR:           config.HardCutoffARR,
		continuityThresholdDays: config.ContinuityThresholdDays,
	}

	// Invalid modifiers are configuration errors: drop them and warn
	for _, modifier := range config.Modifiers {
		if err := modifier.Validate(); err != nil {
			allocator.warn(Warning{
				Kind:        WarningInvalidModifier,
				Severity:    SeverityLow,
				RuleID:      modifier.ID,
				Description: err.Error(),
			})
			continue
		}
		allocator.modifiers = append(allocator.modifiers, modifier)
	}

	return allocator, nil
}

// deriveTargetARR spreads the total book (existing rep load plus this run's
// accounts) evenly across active reps
func deriveTargetARR(state *RunState, accounts []*Account) float64 {
	active := state.ActiveReps()
	if len(active) == 0 {
		return 0
	}

	total := 0.0
	for _, rep := range active {
		total += rep.CurrentARR
	}
	for _, account := range accounts {
		if account != nil && account.ARR > 0 {
			total += account.ARR
		}
	}

	return total / float64(len(active))
}
