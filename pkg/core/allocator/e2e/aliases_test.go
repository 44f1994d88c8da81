package e2e

import (
	allocator "github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator/criteria"
)

// Type aliases to avoid prefixing everything with allocator.
type (
	Account           = allocator.Account
	Rep               = allocator.Rep
	RunState          = allocator.RunState
	AssignmentRule    = allocator.AssignmentRule
	AllocationConfig  = allocator.AllocationConfig
	BalanceThresholds = allocator.BalanceThresholds
)

// Function aliases
var (
	Allocate       = allocator.Allocate
	OrderAccounts  = allocator.OrderAccounts
	ScoreCandidate = allocator.ScoreCandidate
	Summarize      = allocator.Summarize
	FromRules      = criteria.FromRules
)
