package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
	"github.com/jakechorley/territory-balancer/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Assign every account to the best-scoring rep",
		Long:  "Score each account against every active rep using the configured rules and modifiers, commit the best match and save the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			showWarnings, _ := cmd.Flags().GetInt("show-warnings")

			app.Logger.Debug("allocate command", zap.Bool("dry_run", dryRun))

			result, err := services.AllocateTerritories(app.Ctx, app.Database, app.Cfg, app.Logger, dryRun)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}

			fmt.Printf("\n🎯 Territory Assignment Results\n\n")
			fmt.Printf("Run ID:      %s\n", result.RunID)
			fmt.Printf("Target ARR:  %s per rep\n", formatARR(result.TargetARR))
			fmt.Printf("Assigned:    %d\n", result.Metrics.AssignedCount)
			fmt.Printf("Unassigned:  %d\n", result.Metrics.UnassignedCount)
			if dryRun {
				fmt.Printf("Mode:        🧪 DRY RUN (not saved)\n")
			} else {
				fmt.Printf("Status:      ✅ SAVED\n")
			}
			fmt.Println()

			printMetrics(result.Metrics)

			if len(result.Outcome.Unassigned) > 0 {
				fmt.Printf("❌ Unassigned Accounts (%d):\n", len(result.Outcome.Unassigned))
				for _, accountID := range result.Outcome.Unassigned {
					name := accountID
					if account, ok := result.Accounts[accountID]; ok && account.Name != "" {
						name = fmt.Sprintf("%s (%s)", account.Name, accountID)
					}
					fmt.Printf("  • %s\n", name)
				}
				fmt.Println()
			}

			printWarnings(result.Warnings, result.WarningCounts, showWarnings)

			if dryRun {
				fmt.Println("💡 This was a dry run. Use without --dry-run to save the run.")
			} else {
				fmt.Println("✅ Run has been saved to the database.")
			}

			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.Flags().Int("show-warnings", 10, "Maximum number of individual warnings to print")

	return cmd
}

func printWarnings(warnings []allocator.Warning, counts map[allocator.WarningKind]int, limit int) {
	if len(warnings) == 0 {
		return
	}

	fmt.Printf("⚠️  Warnings (%d):\n", len(warnings))
	for _, row := range sortedWarningCounts(counts) {
		fmt.Printf("  %-20s %d\n", row.Kind, row.Count)
	}
	fmt.Println()

	for i, w := range warnings {
		if i >= limit {
			fmt.Printf("  %s… %d more (see log file)%s\n", colorDim, len(warnings)-limit, colorReset)
			break
		}
		fmt.Printf("  %s %s: %s\n", severityIcon(string(w.Severity)), w.Kind, w.Description)
	}
	fmt.Println()
}
