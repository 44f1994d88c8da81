package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// Fixed TIER_BALANCE scores. These are not configurable.
const (
	TierScoreStrategicMatch = 60.0 // tier 1 account, strategic rep
	TierScoreNormalMatch    = 40.0 // tier 3 or 4 account, normal rep
	TierScoreOther          = 20.0
)

// TierBalanceCriterion matches account tiers to rep pools using a fixed table
type TierBalanceCriterion struct {
	base
}

// NewTierBalanceCriterion creates a new TierBalanceCriterion
func NewTierBalanceCriterion(meta RuleMeta) *TierBalanceCriterion {
	return &TierBalanceCriterion{base: base{meta: meta}}
}

func (c *TierBalanceCriterion) Name() string {
	return "TierBalance"
}

func (c *TierBalanceCriterion) Score(state *allocator.RunState, account *allocator.Account, rep *allocator.Rep) float64 {
	switch {
	case account.Tier == 1 && rep.IsStrategic():
		return TierScoreStrategicMatch
	case (account.Tier == 3 || account.Tier == 4) && !rep.IsStrategic():
		return TierScoreNormalMatch
	default:
		return TierScoreOther
	}
}
