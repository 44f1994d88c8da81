package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// CREBalanceCriterion spreads CRE-risk accounts across reps.
//
// Only CRE-risk accounts are scored. The score is balanceWeight per remaining
// CRE slot: balanceWeight * (cap - rep.CRECount). A rep at the cap scores 0
// and a rep beyond it scores negative.
type CREBalanceCriterion struct {
	base
	balanceWeight float64
}

// NewCREBalanceCriterion creates a new CREBalanceCriterion with the given weight
func NewCREBalanceCriterion(meta RuleMeta, balanceWeight float64) *CREBalanceCriterion {
	return &CREBalanceCriterion{
		base:          base{meta: meta},
		balanceWeight: balanceWeight,
	}
}

func (c *CREBalanceCriterion) Name() string {
	return "CREBalance"
}

func (c *CREBalanceCriterion) Score(state *allocator.RunState, account *allocator.Account, rep *allocator.Rep) float64 {
	if !account.IsCRERisk() {
		return 0
	}

	remainingSlots := state.CRECap - rep.CRECount
	return c.balanceWeight * float64(remainingSlots)
}
