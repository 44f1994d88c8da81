package commands

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// formatARR renders an ARR amount compactly, e.g. $1.25M or $350K
func formatARR(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%s$%.2fM", sign, v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s$%.0fK", sign, v/1_000)
	default:
		return fmt.Sprintf("%s$%.0f", sign, v)
	}
}

// balanceColor grades an ARR balance score: green >= 85, yellow >= 70, red below
func balanceColor(score float64, green, yellow, red string) string {
	switch {
	case score >= 85:
		return green
	case score >= 70:
		return yellow
	default:
		return red
	}
}

func severityIcon(severity string) string {
	switch severity {
	case string(allocator.SeverityHigh):
		return "❌"
	case string(allocator.SeverityMedium):
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}

func cutoffLabel(status allocator.CutoffStatus) string {
	switch status {
	case allocator.CutoffOver:
		return colorRed + "over cutoff" + colorReset
	case allocator.CutoffUnder:
		return "under cutoff"
	default:
		return "-"
	}
}

// warningKindCount is one row of a warning summary
type warningKindCount struct {
	Kind  allocator.WarningKind
	Count int
}

// sortedWarningCounts orders warning kinds by count descending, then by name
func sortedWarningCounts(counts map[allocator.WarningKind]int) []warningKindCount {
	rows := make([]warningKindCount, 0, len(counts))
	for _, kind := range slices.Sorted(maps.Keys(counts)) {
		rows = append(rows, warningKindCount{Kind: kind, Count: counts[kind]})
	}
	slices.SortStableFunc(rows, func(a, b warningKindCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return rows
}

// printMetrics prints the headline balance metrics and the per-rep table
func printMetrics(m allocator.OptimizationMetrics) {
	scoreColor := balanceColor(m.ARRBalanceScore, colorGreen, colorYellow, colorRed)
	fmt.Printf("📊 Balance\n\n")
	fmt.Printf("ARR balance score:  %s%.1f%s / 100\n", scoreColor, m.ARRBalanceScore, colorReset)
	fmt.Printf("Geo alignment:      %.1f%%\n", m.GeoAlignmentPct)
	fmt.Printf("Continuity:         %.1f%%\n", m.ContinuityPct)
	fmt.Printf("Reps in band:       %d / %d\n", m.RepsInBand, len(m.RepLoads))
	fmt.Printf("CRE spread (CV):    %.2f\n", m.CREVariance)
	fmt.Printf("Tiers:              P1 %.0f%%  P2 %.0f%%  P3 %.0f%%  P4 %.0f%%\n",
		m.TierRates[allocator.TierContinuityGeo],
		m.TierRates[allocator.TierGeoOnly],
		m.TierRates[allocator.TierContinuityOnly],
		m.TierRates[allocator.TierFallback])
	fmt.Println()

	if len(m.RepLoads) == 0 {
		return
	}

	nameColWidth := 20
	for _, load := range m.RepLoads {
		nameColWidth = max(nameColWidth, len(repLabel(load))+2)
	}

	fmt.Printf("%s%-*s  %10s  %8s  %4s  %-7s  %s%s\n", colorBold,
		nameColWidth, "Rep", "ARR", "Accounts", "CRE", "Band", "Cutoff", colorReset)
	fmt.Println(strings.Repeat("-", nameColWidth+50))
	for _, load := range m.RepLoads {
		band := colorDim + "out" + colorReset + "    "
		if load.InBand {
			band = colorGreen + "in" + colorReset + "     "
		}
		fmt.Printf("%-*s  %10s  %8d  %4d  %s  %s\n",
			nameColWidth, repLabel(load),
			formatARR(load.ARR), load.AccountCount, load.CRECount,
			band, cutoffLabel(load.CutoffStatus))
	}
	fmt.Println()
}

func repLabel(load allocator.RepLoad) string {
	if load.Name == "" {
		return load.RepID
	}
	return fmt.Sprintf("%s (%s)", load.Name, load.RepID)
}
