package allocator

const (
	MinCapacityMultiplier = 0.5
	MaxCapacityMultiplier = 1.5
)

// CapacityMultiplier scales a candidate score by the rep's workload relative to target.
//
// The curve is linear in load = CurrentARR / targetARR:
//
//	multiplier = 1 + 0.5 * (1 - load), clamped to [0.5, 1.5]
//
// An empty book gets 1.5, a rep at target gets 1.0 and a rep at twice the
// target or more gets 0.5. Without a positive target every rep gets 1.0.
func CapacityMultiplier(rep *Rep, targetARR float64) float64 {
	if targetARR <= 0 {
		return 1.0
	}
	load := rep.CurrentARR / targetARR
	multiplier := 1.0 + 0.5*(1.0-load)
	return min(max(multiplier, MinCapacityMultiplier), MaxCapacityMultiplier)
}
