package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// ContinuityCriterion rewards keeping an account with its current owner
type ContinuityCriterion struct {
	base
	continuityBonus float64
}

// NewContinuityCriterion creates a new ContinuityCriterion with the given bonus
func NewContinuityCriterion(meta RuleMeta, continuityBonus float64) *ContinuityCriterion {
	return &ContinuityCriterion{
		base:            base{meta: meta},
		continuityBonus: continuityBonus,
	}
}

func (c *ContinuityCriterion) Name() string {
	return "Continuity"
}

func (c *ContinuityCriterion) Score(state *allocator.RunState, account *allocator.Account, rep *allocator.Rep) float64 {
	if account.CurrentOwnerID != "" && account.CurrentOwnerID == rep.ID {
		return c.continuityBonus
	}
	return 0
}
