package allocator

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionKind is one of the fixed predicates a modifier can test.
// Conditions are never free-form expressions.
type ConditionKind string

const (
	// ConditionRepRegionMismatch is true when the account territory does not map to the rep region
	ConditionRepRegionMismatch ConditionKind = "rep_region_mismatch"

	// ConditionRepARRAboveAverage is true when rep ARR > Threshold * average active rep ARR
	ConditionRepARRAboveAverage ConditionKind = "rep_arr_above_average"

	// ConditionRepAccountCountAbove is true when the rep holds more than Threshold accounts
	ConditionRepAccountCountAbove ConditionKind = "rep_account_count_above"

	// ConditionAccountARRAbove is true when the account ARR exceeds Threshold
	ConditionAccountARRAbove ConditionKind = "account_arr_above"

	// ConditionNotCurrentOwner is true when the rep is not the account's current owner
	ConditionNotCurrentOwner ConditionKind = "not_current_owner"
)

// Condition is a predicate over (account, rep, run state)
type Condition struct {
	Kind      ConditionKind
	Threshold float64
}

// ParseCondition parses the string encoding used by the dashboard:
// "kind" for predicates without a parameter, "kind:threshold" otherwise.
func ParseCondition(s string) (Condition, error) {
	kind, param, hasParam := strings.Cut(strings.TrimSpace(s), ":")
	cond := Condition{Kind: ConditionKind(strings.ToLower(strings.TrimSpace(kind)))}

	switch cond.Kind {
	case ConditionRepRegionMismatch, ConditionNotCurrentOwner:
		if hasParam {
			return Condition{}, fmt.Errorf("%w: %q takes no threshold", ErrInvalidCondition, cond.Kind)
		}
		return cond, nil
	case ConditionRepARRAboveAverage, ConditionRepAccountCountAbove, ConditionAccountARRAbove:
		if !hasParam {
			return Condition{}, fmt.Errorf("%w: %q requires a threshold", ErrInvalidCondition, cond.Kind)
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: bad threshold %q: %v", ErrInvalidCondition, param, err)
		}
		if threshold < 0 {
			return Condition{}, fmt.Errorf("%w: threshold must be >= 0", ErrInvalidCondition)
		}
		cond.Threshold = threshold
		return cond, nil
	default:
		return Condition{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidCondition, kind)
	}
}

// String returns the dashboard encoding of the condition
func (c Condition) String() string {
	switch c.Kind {
	case ConditionRepRegionMismatch, ConditionNotCurrentOwner:
		return string(c.Kind)
	default:
		return string(c.Kind) + ":" + strconv.FormatFloat(c.Threshold, 'f', -1, 64)
	}
}

// Evaluate returns true if the condition holds for the candidate
func (c Condition) Evaluate(state *RunState, account *Account, rep *Rep) bool {
	switch c.Kind {
	case ConditionRepRegionMismatch:
		return !state.IsGeoMatch(account, rep)
	case ConditionRepARRAboveAverage:
		return rep.CurrentARR > c.Threshold*state.AverageRepARR()
	case ConditionRepAccountCountAbove:
		return float64(rep.AccountCount) > c.Threshold
	case ConditionAccountARRAbove:
		return account.ARR > c.Threshold
	case ConditionNotCurrentOwner:
		return account.CurrentOwnerID != rep.ID
	default:
		return false
	}
}

// ModifierAction is the adjustment applied when a modifier's condition holds
type ModifierAction string

const (
	ActionMultiplyScore ModifierAction = "multiply_score"
	ActionSetScore      ModifierAction = "set_score"
	ActionAddPenalty    ModifierAction = "add_penalty"
	ActionDisqualify    ModifierAction = "disqualify"
)

// Modifier is a conditional adjustment applied on top of the raw score
type Modifier struct {
	ID        string
	Name      string
	Condition Condition
	Action    ModifierAction

	// Value is required for every action except disqualify
	Value *float64
}

// Validate checks that the modifier can be applied
func (m Modifier) Validate() error {
	switch m.Action {
	case ActionDisqualify:
		return nil
	case ActionMultiplyScore, ActionSetScore, ActionAddPenalty:
		if m.Value == nil {
			return fmt.Errorf("%w: %s action %s requires a value", ErrInvalidModifier, m.displayName(), m.Action)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown action %q", ErrInvalidModifier, m.displayName(), m.Action)
	}
}

func (m Modifier) displayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// ApplyModifiers applies modifiers in list order to a raw score.
//
// Returns the adjusted score and whether the candidate was disqualified.
// A disqualify action forces the score to 0 and ends evaluation, so no later
// modifier can raise it again. Invalid modifiers are skipped.
func ApplyModifiers(state *RunState, account *Account, rep *Rep, rawScore float64, modifiers []Modifier) (float64, bool) {
	score := rawScore

	for _, modifier := range modifiers {
		if modifier.Validate() != nil {
			continue
		}
		if !modifier.Condition.Evaluate(state, account, rep) {
			continue
		}

		switch modifier.Action {
		case ActionMultiplyScore:
			score *= *modifier.Value
		case ActionSetScore:
			score = *modifier.Value
		case ActionAddPenalty:
			score -= *modifier.Value
		case ActionDisqualify:
			return 0, true
		}
	}

	return score, false
}
