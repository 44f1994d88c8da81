package allocator

import (
	"gonum.org/v1/gonum/stat"
)

// CutoffStatus describes a rep's ARR relative to the hard cutoff
type CutoffStatus string

const (
	CutoffNone  CutoffStatus = ""
	CutoffOver  CutoffStatus = "over_cutoff"
	CutoffUnder CutoffStatus = "under_cutoff"
)

// BalanceThresholds are the ARR bands used when reporting balance
type BalanceThresholds struct {
	// MinThresholdARR and PreferredMaxARR bound the healthy band
	MinThresholdARR float64
	PreferredMaxARR float64

	// HardCutoffARR flags reps over/under the cutoff. 0 disables the flag.
	HardCutoffARR float64
}

// RepLoad is the final workload of one active rep
type RepLoad struct {
	RepID        string
	Name         string
	ARR          float64
	AccountCount int
	CRECount     int
	InBand       bool
	CutoffStatus CutoffStatus
}

// OptimizationMetrics summarises the balance of a finished run
type OptimizationMetrics struct {
	// ARRBalanceScore is 100 - CV(rep ARR)*100, clamped to [0, 100]
	ARRBalanceScore float64

	// GeoAlignmentPct is the percentage of assigned accounts whose rep covers the territory
	GeoAlignmentPct float64

	// ContinuityPct is the percentage of assigned accounts that kept their owner
	ContinuityPct float64

	// TierRates is the percentage of assigned accounts won in each priority tier
	TierRates map[PriorityTier]float64

	// RepsInBand counts reps whose ARR is within [MinThresholdARR, PreferredMaxARR]
	RepsInBand int

	// CREVariance is the coefficient of variation of per-rep CRE counts
	CREVariance float64

	AssignedCount   int
	UnassignedCount int

	RepLoads []RepLoad
}

// Summarize derives balance metrics from a finished run. It does not modify the outcome.
func Summarize(outcome *AllocationOutcome, thresholds BalanceThresholds) OptimizationMetrics {
	metrics := OptimizationMetrics{
		TierRates: map[PriorityTier]float64{
			TierContinuityGeo:  0,
			TierGeoOnly:        0,
			TierContinuityOnly: 0,
			TierFallback:       0,
		},
		AssignedCount:   len(outcome.Assignments),
		UnassignedCount: len(outcome.Unassigned),
		RepLoads:        []RepLoad{},
	}

	if n := len(outcome.Assignments); n > 0 {
		geo, continuity := 0, 0
		tierCounts := make(map[PriorityTier]int)
		for _, a := range outcome.Assignments {
			if a.GeoMatch {
				geo++
			}
			if a.Continuity {
				continuity++
			}
			tierCounts[a.Tier]++
		}
		metrics.GeoAlignmentPct = percent(geo, n)
		metrics.ContinuityPct = percent(continuity, n)
		for tier := range metrics.TierRates {
			metrics.TierRates[tier] = percent(tierCounts[tier], n)
		}
	}

	if outcome.State == nil {
		metrics.ARRBalanceScore = 100
		return metrics
	}

	active := outcome.State.ActiveReps()
	arrs := make([]float64, 0, len(active))
	cres := make([]float64, 0, len(active))
	for _, rep := range active {
		arrs = append(arrs, rep.CurrentARR)
		cres = append(cres, float64(rep.CRECount))

		load := RepLoad{
			RepID:        rep.ID,
			Name:         rep.Name,
			ARR:          rep.CurrentARR,
			AccountCount: rep.AccountCount,
			CRECount:     rep.CRECount,
			InBand:       rep.CurrentARR >= thresholds.MinThresholdARR && rep.CurrentARR <= thresholds.PreferredMaxARR,
			CutoffStatus: CutoffStatusFor(rep.CurrentARR, thresholds.HardCutoffARR),
		}
		if load.InBand {
			metrics.RepsInBand++
		}
		metrics.RepLoads = append(metrics.RepLoads, load)
	}

	metrics.ARRBalanceScore = min(max(100-CoefficientOfVariation(arrs)*100, 0), 100)
	metrics.CREVariance = CoefficientOfVariation(cres)

	return metrics
}

// CutoffStatusFor classifies an ARR against the hard cutoff
func CutoffStatusFor(arr, cutoff float64) CutoffStatus {
	if cutoff <= 0 {
		return CutoffNone
	}
	if arr > cutoff {
		return CutoffOver
	}
	return CutoffUnder
}

// CoefficientOfVariation returns the population standard deviation divided by the mean.
// Returns 0 for empty input or a zero mean.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
