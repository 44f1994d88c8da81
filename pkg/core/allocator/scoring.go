package allocator

// PriorityMultiplier returns the weight applied to a rule of the given priority.
// Priority 1 → 1.0, priority 2 → 0.5, priority 3 → 0.333...
// Priorities below 1 contribute nothing.
func PriorityMultiplier(priority int) float64 {
	if priority < 1 {
		return 0
	}
	return 1.0 / float64(priority)
}

// ScoreCandidate computes the raw match score between an account and a rep.
//
// Each criterion whose scope matches the account contributes its sub-score
// multiplied by 1/priority. Criteria outside their scope contribute 0.
func ScoreCandidate(state *RunState, account *Account, rep *Rep, criteria []Criterion) float64 {
	total := 0.0
	for _, criterion := range criteria {
		if !criterion.Scope().Matches(account) {
			continue
		}
		total += criterion.Score(state, account, rep) * PriorityMultiplier(criterion.Priority())
	}
	return total
}
