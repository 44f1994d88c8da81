package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/pkg/core/services"
)

// WhatIfCmd creates the whatIf command
func WhatIfCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whatIf [scenario...]",
		Short: "Compare configured scenarios against the live configuration",
		Long:  "Run the baseline and each scenario concurrently against the same snapshot. Nothing is saved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(app.Cfg.Scenarios) == 0 {
				fmt.Println("No scenarios configured. Add a 'scenarios' block to the config file.")
				return nil
			}

			app.Logger.Debug("whatIf command", zap.Strings("scenarios", args))

			results, err := services.RunScenarios(app.Ctx, app.Database, app.Cfg, app.Logger, args)
			if err != nil {
				return fmt.Errorf("scenario run failed: %w", err)
			}

			nameColWidth := 16
			for _, r := range results {
				nameColWidth = max(nameColWidth, len(r.Name)+2)
			}

			fmt.Printf("\n🔀 What-If Scenarios\n\n")
			fmt.Printf("%s%-*s  %8s  %6s  %6s  %7s  %10s  %6s  %8s%s\n", colorBold,
				nameColWidth, "Scenario", "Balance", "Geo", "Cont.", "In band", "Unassigned", "Moves", "Warnings", colorReset)
			fmt.Println(strings.Repeat("-", nameColWidth+70))

			for _, r := range results {
				warnings := 0
				for _, n := range r.WarningCounts {
					warnings += n
				}
				scoreColor := balanceColor(r.Metrics.ARRBalanceScore, colorGreen, colorYellow, colorRed)
				fmt.Printf("%-*s  %s%8.1f%s  %5.0f%%  %5.0f%%  %7d  %10d  %6d  %8d\n",
					nameColWidth, r.Name,
					scoreColor, r.Metrics.ARRBalanceScore, colorReset,
					r.Metrics.GeoAlignmentPct, r.Metrics.ContinuityPct,
					r.Metrics.RepsInBand, r.Metrics.UnassignedCount, r.Moves, warnings)
			}
			fmt.Println()
			fmt.Println("Moves counts accounts assigned differently from the baseline.")

			return nil
		},
	}
}
