package allocator

import (
	"fmt"
	"slices"
	"strings"
)

// Pool constants
const (
	PoolStrategic = "strategic"
	PoolNormal    = "normal"
)

// DefaultCRECap is the maximum number of CRE-risk accounts a rep should hold
const DefaultCRECap = 3

// Account represents a customer account waiting to be assigned to a rep
type Account struct {
	ID   string
	Name string

	// ARR is the annual recurring revenue of the account (must be >= 0)
	ARR float64

	// ATR is the available-to-renew amount
	ATR float64

	Territory string

	// Tier is 1-4, or 0 when unset
	Tier int

	// CRERisk flags a churn-risk account. CRECount > 0 implies the same.
	CRERisk  bool
	CRECount int

	// CurrentOwnerID is the rep who owns the account before this run
	CurrentOwnerID string

	// ProposedOwnerID is a manager-proposed owner, carried through for display only
	ProposedOwnerID string

	// ParentID links child accounts to their parent (empty for top-level accounts)
	ParentID string

	IsSplitOwnership bool

	// OwnerTenureDays is how long the current owner has held the account
	OwnerTenureDays int
}

// IsCRERisk returns true if the account counts against a rep's CRE cap
func (a *Account) IsCRERisk() bool {
	return a.CRERisk || a.CRECount > 0
}

// Validate checks ARR is non-negative and the tier is unset (0) or 1-4
func (a *Account) Validate() error {
	if a.ARR < 0 {
		return fmt.Errorf("account %s has negative ARR %.2f", a.ID, a.ARR)
	}
	if a.Tier < 0 || a.Tier > 4 {
		return fmt.Errorf("account %s has tier %d outside 1-4", a.ID, a.Tier)
	}
	return nil
}

// Rep represents a sales rep and their running workload totals
type Rep struct {
	ID     string
	Name   string
	Region string
	Active bool

	// Pool is PoolStrategic or PoolNormal
	Pool string

	// Running totals, updated as accounts are committed
	CurrentARR   float64
	AccountCount int
	CRECount     int
}

// IsStrategic returns true if the rep belongs to the strategic pool
func (r *Rep) IsStrategic() bool {
	return strings.EqualFold(r.Pool, PoolStrategic)
}

func (r *Rep) clone() *Rep {
	c := *r
	return &c
}

// Scope restricts which accounts a rule applies to. An empty scope matches every account.
type Scope struct {
	Territories []string
	Tiers       []int
	MinARR      *float64
	MaxARR      *float64
}

// IsEmpty returns true if the scope places no restriction on accounts
func (s Scope) IsEmpty() bool {
	return len(s.Territories) == 0 && len(s.Tiers) == 0 && s.MinARR == nil && s.MaxARR == nil
}

// Matches returns true if the account falls within the scope
func (s Scope) Matches(account *Account) bool {
	if len(s.Territories) > 0 && !slices.ContainsFunc(s.Territories, func(t string) bool {
		return strings.EqualFold(t, account.Territory)
	}) {
		return false
	}
	if len(s.Tiers) > 0 && !slices.Contains(s.Tiers, account.Tier) {
		return false
	}
	if s.MinARR != nil && account.ARR < *s.MinARR {
		return false
	}
	if s.MaxARR != nil && account.ARR > *s.MaxARR {
		return false
	}
	return true
}

// RunState is the view of the world during a single allocation run.
// Reps are owned by the run and mutated as accounts are committed.
type RunState struct {
	// Reps sorted by ID
	Reps []*Rep

	// TargetARR is the per-rep ARR target for the fleet
	TargetARR float64

	// CRECap is the maximum number of CRE-risk accounts per rep
	CRECap int

	// TerritoryRegions maps an account territory to the rep region that covers it
	TerritoryRegions map[string]string
}

// RepByID returns the rep with the given ID, or nil
func (rs *RunState) RepByID(id string) *Rep {
	for _, rep := range rs.Reps {
		if rep.ID == id {
			return rep
		}
	}
	return nil
}

// ActiveReps returns the active reps in ID order
func (rs *RunState) ActiveReps() []*Rep {
	active := make([]*Rep, 0, len(rs.Reps))
	for _, rep := range rs.Reps {
		if rep.Active {
			active = append(active, rep)
		}
	}
	return active
}

// AverageRepARR returns the mean current ARR across active reps
func (rs *RunState) AverageRepARR() float64 {
	active := rs.ActiveReps()
	if len(active) == 0 {
		return 0
	}
	total := 0.0
	for _, rep := range active {
		total += rep.CurrentARR
	}
	return total / float64(len(active))
}

// RegionForTerritory resolves the rep region covering a territory.
// Unmapped territories are assumed to share the region's name.
func (rs *RunState) RegionForTerritory(territory string) string {
	if region, ok := rs.TerritoryRegions[territory]; ok {
		return region
	}
	for t, region := range rs.TerritoryRegions {
		if strings.EqualFold(t, territory) {
			return region
		}
	}
	return territory
}

// IsGeoMatch returns true if the account's territory maps to the rep's region
func (rs *RunState) IsGeoMatch(account *Account, rep *Rep) bool {
	if account.Territory == "" || rep.Region == "" {
		return false
	}
	return strings.EqualFold(rs.RegionForTerritory(account.Territory), rep.Region)
}
