package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/territory-balancer/pkg/core/services"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// MetricsCmd creates the metrics command
func MetricsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show balance metrics for the latest saved run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("metrics command")

			result, err := services.LatestRunMetrics(app.Ctx, app.Database, app.Cfg, app.Logger)
			if errors.Is(err, db.ErrNoRuns) {
				fmt.Println("No runs saved yet. Use 'allocate' to create one.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load metrics: %w", err)
			}

			fmt.Printf("\n📈 Latest Run\n\n")
			fmt.Printf("Run ID:      %s\n", result.Run.ID)
			fmt.Printf("Created:     %s\n", result.Run.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Printf("Target ARR:  %s per rep\n", formatARR(result.Run.TargetARR))
			fmt.Printf("Assigned:    %d\n", result.Metrics.AssignedCount)
			fmt.Printf("Unassigned:  %d\n", result.Metrics.UnassignedCount)
			fmt.Printf("Warnings:    %d\n", len(result.Warnings))
			fmt.Println()

			printMetrics(result.Metrics)

			if len(result.MissingAccounts) > 0 {
				fmt.Printf("ℹ️  %d accounts in this run no longer exist and are excluded from rep totals\n\n",
					len(result.MissingAccounts))
			}

			return nil
		},
	}
}
