package allocator

// RuleType identifies the scoring behaviour of an assignment rule
type RuleType string

const (
	RuleGeoFirst     RuleType = "GEO_FIRST"
	RuleContinuity   RuleType = "CONTINUITY"
	RuleSmartBalance RuleType = "SMART_BALANCE"
	RuleCREBalance   RuleType = "CRE_BALANCE"
	RuleTierBalance  RuleType = "TIER_BALANCE"
)

// AssignmentRule is the configuration record for one scoring rule
type AssignmentRule struct {
	ID       string
	Type     RuleType
	Priority int
	Enabled  bool

	// Weights holds rule-type-specific named weights (e.g. "territoryMatch")
	Weights map[string]float64

	Scope Scope
}

// Criterion defines the interface for a scoring rule used during allocation
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// RuleID returns the ID of the rule record this criterion was built from
	RuleID() string

	// Priority returns the rule priority (1 = strongest)
	// The criterion's contribution is multiplied by 1/Priority
	Priority() int

	// Scope returns the accounts this criterion applies to
	Scope() Scope

	// Score returns the unweighted sub-score for assigning account to rep.
	// Rep totals in state reflect every account committed so far.
	Score(state *RunState, account *Account, rep *Rep) float64
}
