package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// SmartBalanceCriterion gives more credit to reps further below the fleet ARR target.
//
// Score: balanceImpact * deficit, where
//
//	deficit = (targetARR - rep.CurrentARR) / targetARR, clamped to [0, 1]
//
// A rep with an empty book earns the full weight; a rep at or over target earns 0.
// Without a positive target every rep earns 0.
type SmartBalanceCriterion struct {
	base
	balanceImpact float64
}

// NewSmartBalanceCriterion creates a new SmartBalanceCriterion with the given weight
func NewSmartBalanceCriterion(meta RuleMeta, balanceImpact float64) *SmartBalanceCriterion {
	return &SmartBalanceCriterion{
		base:          base{meta: meta},
		balanceImpact: balanceImpact,
	}
}

func (c *SmartBalanceCriterion) Name() string {
	return "SmartBalance"
}

func (c *SmartBalanceCriterion) Score(state *allocator.RunState, account *allocator.Account, rep *allocator.Rep) float64 {
	if state.TargetARR <= 0 {
		return 0
	}

	deficit := (state.TargetARR - rep.CurrentARR) / state.TargetARR
	deficit = min(max(deficit, 0), 1)

	return c.balanceImpact * deficit
}
