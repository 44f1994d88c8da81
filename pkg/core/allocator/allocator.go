package allocator

import (
	"fmt"
	"math"
)

// scoreEpsilon is the tolerance within which two final scores count as tied
const scoreEpsilon = 1e-9

// Allocator manages a single assignment run
type Allocator struct {
	criteria                []Criterion
	modifiers               []Modifier
	state                   *RunState
	hardCutoffARR           float64
	continuityThresholdDays int

	assignments []Assignment
	unassigned  []string
	warnings    []Warning
}

// AllocationConfig contains the configuration for a run.
// Everything the run needs is passed in here and never re-fetched mid-run.
type AllocationConfig struct {
	// Accounts to allocate, processed in slice order (see OrderAccounts)
	Accounts []*Account

	// Reps with their starting totals (the book held outside this run)
	Reps []*Rep

	// Criteria built from the enabled assignment rules
	Criteria []Criterion

	// Modifiers applied in list order on top of the raw score
	Modifiers []Modifier

	// TargetARR per rep. 0 derives the target from the total book.
	TargetARR float64

	// HardCutoffARR is the rep ARR ceiling. 0 disables the cap.
	HardCutoffARR float64

	// CRECap is the maximum CRE-risk accounts per rep. 0 uses DefaultCRECap.
	CRECap int

	// ContinuityThresholdDays is the tenure above which moving an account warns
	ContinuityThresholdDays int

	// TerritoryRegions maps account territories to rep regions
	TerritoryRegions map[string]string
}

// PriorityTier classifies which rule combination produced a winning assignment
type PriorityTier string

const (
	// TierContinuityGeo: the rep keeps the account and covers its territory
	TierContinuityGeo PriorityTier = "P1"
	// TierGeoOnly: the rep covers the territory but is a new owner
	TierGeoOnly PriorityTier = "P2"
	// TierContinuityOnly: the rep keeps the account outside its region
	TierContinuityOnly PriorityTier = "P3"
	// TierFallback: neither geography nor continuity held
	TierFallback PriorityTier = "P4"
)

// Assignment is the committed result for one account
type Assignment struct {
	AccountID       string
	RepID           string
	PreviousOwnerID string
	RawScore        float64
	AdjustedScore   float64
	FinalScore      float64
	GeoMatch        bool
	Continuity      bool
	Tier            PriorityTier

	// SoftBreach is set when a hard constraint was relaxed because no rep satisfied it
	SoftBreach bool
}

// Candidate is an ephemeral scored (account, rep) pair
type Candidate struct {
	Account       *Account
	Rep           *Rep
	RawScore      float64
	AdjustedScore float64
	Multiplier    float64
	FinalScore    float64
	Disqualified  bool
	GeoMatch      bool
	Continuity    bool
}

// AllocationOutcome represents the result of a run
type AllocationOutcome struct {
	// State holds the reps with their final totals
	State *RunState

	// Assignments in processing order
	Assignments []Assignment

	// Unassigned account IDs in processing order. Each also has an unassigned warning.
	Unassigned []string

	Warnings []Warning
}

// AssignmentMap returns accountID -> repID for every assigned account
func (o *AllocationOutcome) AssignmentMap() map[string]string {
	m := make(map[string]string, len(o.Assignments))
	for _, a := range o.Assignments {
		m[a.AccountID] = a.RepID
	}
	return m
}

// Allocate runs the assignment loop over config.Accounts in order.
//
// Accounts without an eligible rep are recorded as unassigned and the run
// continues. The only error is an unusable config.
func Allocate(config AllocationConfig) (*AllocationOutcome, error) {
	allocator, err := InitAllocation(config)
	if err != nil {
		return nil, err
	}

	for _, account := range config.Accounts {
		if account == nil {
			continue
		}
		allocator.allocateAccount(account)
	}

	return allocator.buildOutcome(), nil
}

func (a *Allocator) allocateAccount(account *Account) {
	if err := account.Validate(); err != nil {
		a.markUnassigned(account, fmt.Sprintf("invalid account: %v", err))
		return
	}

	layers := a.eligibilityLayers(account)
	if len(layers) == 0 {
		a.markUnassigned(account, "no active reps available")
		return
	}

	// Each layer relaxes one more constraint. A layer is only tried when
	// every rep in the stricter one was disqualified.
	for _, layer := range layers {
		if best := a.selectBest(a.scoreCandidates(account, layer.reps)); best != nil {
			a.commit(best, layer.softBreach)
			return
		}
	}

	a.markUnassigned(account, "every eligible rep was disqualified")
}

// eligibilityLayer is one candidate pool. softBreach is set when the pool
// ignores the ARR cutoff or the CRE cap.
type eligibilityLayer struct {
	reps       []*Rep
	softBreach bool
}

// eligibilityLayers returns the candidate pools for an account, strictest first:
//  1. reps within the CRE cap (for CRE-risk accounts) and under the ARR cutoff
//  2. reps within the CRE cap, ARR cutoff ignored
//  3. every active rep
//
// Empty layers and layers identical to the previous one are dropped.
func (a *Allocator) eligibilityLayers(account *Account) []eligibilityLayer {
	active := a.state.ActiveReps()
	if len(active) == 0 {
		return nil
	}

	var strict, withinCRECap []*Rep
	for _, rep := range active {
		if account.IsCRERisk() && rep.CRECount >= a.state.CRECap {
			continue
		}
		withinCRECap = append(withinCRECap, rep)
		if a.hardCutoffARR <= 0 || rep.CurrentARR+account.ARR <= a.hardCutoffARR {
			strict = append(strict, rep)
		}
	}

	// Each layer is a superset of the one before, so equal length means equal
	var layers []eligibilityLayer
	for i, reps := range [][]*Rep{strict, withinCRECap, active} {
		if len(reps) == 0 {
			continue
		}
		if len(layers) > 0 && len(layers[len(layers)-1].reps) == len(reps) {
			continue
		}
		layers = append(layers, eligibilityLayer{reps: reps, softBreach: i > 0})
	}
	return layers
}

// scoreCandidates scores the account against each rep.
// Rep totals are read-only here.
func (a *Allocator) scoreCandidates(account *Account, reps []*Rep) []*Candidate {
	candidates := make([]*Candidate, 0, len(reps))
	for _, rep := range reps {
		raw := ScoreCandidate(a.state, account, rep, a.criteria)
		adjusted, disqualified := ApplyModifiers(a.state, account, rep, raw, a.modifiers)
		multiplier := CapacityMultiplier(rep, a.state.TargetARR)

		candidates = append(candidates, &Candidate{
			Account:       account,
			Rep:           rep,
			RawScore:      raw,
			AdjustedScore: adjusted,
			Multiplier:    multiplier,
			FinalScore:    adjusted * multiplier,
			Disqualified:  disqualified,
			GeoMatch:      a.state.IsGeoMatch(account, rep),
			Continuity:    account.CurrentOwnerID != "" && account.CurrentOwnerID == rep.ID,
		})
	}
	return candidates
}

// selectBest picks the highest final score. Ties go to the current owner,
// then the rep with the lowest current ARR, then the lowest rep ID.
func (a *Allocator) selectBest(candidates []*Candidate) *Candidate {
	var best *Candidate
	for _, candidate := range candidates {
		if candidate.Disqualified {
			continue
		}
		if best == nil || beats(candidate, best) {
			best = candidate
		}
	}
	return best
}

func beats(c, best *Candidate) bool {
	if math.Abs(c.FinalScore-best.FinalScore) > scoreEpsilon {
		return c.FinalScore > best.FinalScore
	}
	if c.Continuity != best.Continuity {
		return c.Continuity
	}
	if c.Rep.CurrentARR != best.Rep.CurrentARR {
		return c.Rep.CurrentARR < best.Rep.CurrentARR
	}
	return c.Rep.ID < best.Rep.ID
}

// commit assigns the account and updates the rep's running totals so the
// next account sees the new state
func (a *Allocator) commit(c *Candidate, softBreach bool) {
	account, rep := c.Account, c.Rep

	rep.CurrentARR += account.ARR
	rep.AccountCount++
	if account.IsCRERisk() {
		rep.CRECount++
	}

	a.assignments = append(a.assignments, Assignment{
		AccountID:       account.ID,
		RepID:           rep.ID,
		PreviousOwnerID: account.CurrentOwnerID,
		RawScore:        c.RawScore,
		AdjustedScore:   c.AdjustedScore,
		FinalScore:      c.FinalScore,
		GeoMatch:        c.GeoMatch,
		Continuity:      c.Continuity,
		Tier:            tierFor(c.GeoMatch, c.Continuity),
		SoftBreach:      softBreach,
	})

	if account.CurrentOwnerID != "" && !c.Continuity && account.OwnerTenureDays > a.continuityThresholdDays {
		a.warn(NewWarning(WarningContinuityBroken, account.ID, rep.ID,
			fmt.Sprintf("moved from %s after %d days of ownership", account.CurrentOwnerID, account.OwnerTenureDays)))
	}

	// Accounts without a territory and reps without a region never match, but are not cross-region
	if !c.GeoMatch && account.Territory != "" && rep.Region != "" {
		a.warn(NewWarning(WarningCrossRegion, account.ID, rep.ID,
			fmt.Sprintf("territory %q assigned to rep in region %q", account.Territory, rep.Region)))
	}

	if account.IsCRERisk() && rep.CRECount > a.state.CRECap {
		kind := WarningCRERisk
		if rep.IsStrategic() {
			kind = WarningStrategicOverflow
		}
		a.warn(NewWarning(kind, account.ID, rep.ID,
			fmt.Sprintf("rep now holds %d CRE-risk accounts (cap %d)", rep.CRECount, a.state.CRECap)))
	}

	if a.hardCutoffARR > 0 && rep.CurrentARR > a.hardCutoffARR {
		a.warn(NewWarning(WarningARRCap, account.ID, rep.ID,
			fmt.Sprintf("rep ARR %.0f exceeds hard cutoff %.0f", rep.CurrentARR, a.hardCutoffARR)))
	}
}

func (a *Allocator) markUnassigned(account *Account, reason string) {
	a.unassigned = append(a.unassigned, account.ID)
	a.warn(NewWarning(WarningUnassigned, account.ID, "", reason))
}

func (a *Allocator) warn(w Warning) {
	a.warnings = append(a.warnings, w)
}

func tierFor(geoMatch, continuity bool) PriorityTier {
	switch {
	case geoMatch && continuity:
		return TierContinuityGeo
	case geoMatch:
		return TierGeoOnly
	case continuity:
		return TierContinuityOnly
	default:
		return TierFallback
	}
}

// buildOutcome creates the final outcome report
func (a *Allocator) buildOutcome() *AllocationOutcome {
	// Initialize with empty slices (not nil) for easier consumption
	outcome := &AllocationOutcome{
		State:       a.state,
		Assignments: []Assignment{},
		Unassigned:  []string{},
		Warnings:    []Warning{},
	}
	outcome.Assignments = append(outcome.Assignments, a.assignments...)
	outcome.Unassigned = append(outcome.Unassigned, a.unassigned...)
	outcome.Warnings = append(outcome.Warnings, a.warnings...)
	return outcome
}
