package criteria

import (
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// GeoFirstCriterion prefers reps whose region covers the account's territory.
//
// Score:
//   - territoryMatch when the territory maps to the rep's region
//   - distancePenalty otherwise (normally negative)
type GeoFirstCriterion struct {
	base
	territoryMatch  float64
	distancePenalty float64
}

// NewGeoFirstCriterion creates a new GeoFirstCriterion with the given weights
func NewGeoFirstCriterion(meta RuleMeta, territoryMatch, distancePenalty float64) *GeoFirstCriterion {
	return &GeoFirstCriterion{
		base:            base{meta: meta},
		territoryMatch:  territoryMatch,
		distancePenalty: distancePenalty,
	}
}

func (c *GeoFirstCriterion) Name() string {
	return "GeoFirst"
}

func (c *GeoFirstCriterion) Score(state *allocator.RunState, account *allocator.Account, rep *allocator.Rep) float64 {
	if state.IsGeoMatch(account, rep) {
		return c.territoryMatch
	}
	return c.distancePenalty
}
