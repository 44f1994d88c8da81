package db

import "time"

// Account is a stored customer account
type Account struct {
	ID               string
	Name             string
	ARR              float64
	ATR              float64
	Territory        string
	Tier             int
	CRERisk          bool
	CRECount         int
	CurrentOwnerID   string
	ProposedOwnerID  string
	ParentID         string
	IsSplitOwnership bool
	OwnerTenureDays  int
}

// Rep is a stored sales rep. The totals are the book held outside the
// accounts being assigned.
type Rep struct {
	ID           string
	Name         string
	Region       string
	Active       bool
	Pool         string
	CurrentARR   float64
	AccountCount int
	CRECount     int
}

// RuleScope is the JSON-encoded scope of an assignment rule
type RuleScope struct {
	Territories []string `json:"territories,omitempty"`
	Tiers       []int    `json:"tiers,omitempty"`
	MinARR      *float64 `json:"minArr,omitempty"`
	MaxARR      *float64 `json:"maxArr,omitempty"`
}

// AssignmentRule is a stored rule record
type AssignmentRule struct {
	ID       string
	Name     string
	RuleType string
	Priority int
	Enabled  bool
	Weights  map[string]float64
	Scope    RuleScope
}

// ConditionalModifier is a stored modifier. Position fixes evaluation order.
type ConditionalModifier struct {
	ID        string
	Name      string
	Condition string
	Action    string
	Value     *float64
	Position  int
}

// Snapshot is everything a run reads, loaded once before the run starts
type Snapshot struct {
	Accounts  []Account
	Reps      []Rep
	Rules     []AssignmentRule
	Modifiers []ConditionalModifier
}

// Run is a committed assignment run with its headline metrics
type Run struct {
	ID              string
	CreatedAt       time.Time
	TargetARR       float64
	HardCutoffARR   float64
	AssignedCount   int
	UnassignedCount int
	ARRBalanceScore float64
	GeoAlignmentPct float64
	ContinuityPct   float64
}

// AssignmentResult is one account's outcome in a run. RepID is empty for
// unassigned accounts.
type AssignmentResult struct {
	RunID           string
	AccountID       string
	RepID           string
	PreviousOwnerID string
	RawScore        float64
	AdjustedScore   float64
	FinalScore      float64
	GeoMatch        bool
	Continuity      bool
	Tier            string
	SoftBreach      bool
}

// WarningRecord is a stored run warning
type WarningRecord struct {
	ID          string
	RunID       string
	Kind        string
	Severity    string
	AccountID   string
	RepID       string
	RuleID      string
	Description string
}

// RunRecord is a committed run with its results and warnings
type RunRecord struct {
	Run      Run
	Results  []AssignmentResult
	Warnings []WarningRecord
}
