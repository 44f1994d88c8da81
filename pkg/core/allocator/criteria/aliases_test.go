package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// Type aliases for test readability - shared across all criterion tests
type (
	RunState       = allocator.RunState
	Account        = allocator.Account
	Rep            = allocator.Rep
	Scope          = allocator.Scope
	AssignmentRule = allocator.AssignmentRule
)
