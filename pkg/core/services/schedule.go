package services

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/teambition/rrule-go"

	"github.com/jakechorley/territory-balancer/internal/config"
)

// NextRebalanceDates returns the next count occurrences of the rebalance rule after from.
// Rules without a DTSTART are anchored at from.
func NextRebalanceDates(cfg *config.Config, from time.Time, count int) ([]time.Time, error) {
	if cfg.RebalanceRRule == "" {
		return nil, eris.New("services: no rebalanceRRule configured")
	}
	if count < 1 {
		return nil, eris.Errorf("services: count must be at least 1, got %d", count)
	}

	rule, err := rrule.StrToRRule(cfg.RebalanceRRule)
	if err != nil {
		return nil, eris.Wrap(err, "services: parse rebalanceRRule")
	}
	if !strings.Contains(strings.ToUpper(cfg.RebalanceRRule), "DTSTART") {
		rule.DTStart(from)
	}

	dates := make([]time.Time, 0, count)
	next := from
	for len(dates) < count {
		next = rule.After(next, false)
		if next.IsZero() {
			break
		}
		dates = append(dates, next)
	}

	return dates, nil
}
