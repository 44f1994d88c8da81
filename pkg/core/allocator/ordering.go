package allocator

import (
	"math"
	"slices"
	"strings"
)

// OrderAccounts returns the accounts in the order they must be allocated.
//
// Rep totals change after every commit, so processing order affects the
// result. Accounts are sorted by:
//  1. the best (lowest) priority among scoped criteria matching the account;
//     unscoped criteria apply to everything and do not affect order
//  2. descending ARR
//  3. ascending account ID
//
// The input slice is not modified.
func OrderAccounts(accounts []*Account, criteria []Criterion) []*Account {
	rank := make(map[*Account]int, len(accounts))
	for _, account := range accounts {
		rank[account] = scopedPriority(account, criteria)
	}

	ordered := slices.Clone(accounts)
	slices.SortStableFunc(ordered, func(a, b *Account) int {
		if rank[a] != rank[b] {
			if rank[a] < rank[b] {
				return -1
			}
			return 1
		}
		if a.ARR != b.ARR {
			if a.ARR > b.ARR {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ordered
}

func scopedPriority(account *Account, criteria []Criterion) int {
	best := math.MaxInt
	for _, criterion := range criteria {
		scope := criterion.Scope()
		if scope.IsEmpty() || !scope.Matches(account) {
			continue
		}
		best = min(best, criterion.Priority())
	}
	return best
}
