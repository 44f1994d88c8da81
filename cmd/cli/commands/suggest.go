package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/pkg/core/services"
	"github.com/jakechorley/territory-balancer/pkg/db"
)

// SuggestCmd creates the suggest command
func SuggestCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Ask the model for rebalancing moves for the latest saved run",
		Long:  "Send under-target reps and movable accounts to the model in batches and list suggested moves. Suggestions are never applied automatically.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Anthropic == nil {
				return fmt.Errorf("suggestions need an anthropic block in the config and its API key environment variable set")
			}

			app.Logger.Debug("suggest command")

			result, err := services.GenerateSuggestions(app.Ctx, app.Database, app.Anthropic, app.Cfg, app.Logger,
				func(done, total int) {
					fmt.Printf("  %s⏳ batch %d/%d done%s\n", colorDim, done, total, colorReset)
				})
			if errors.Is(err, db.ErrNoRuns) {
				fmt.Println("No runs saved yet. Use 'allocate' to create one.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to generate suggestions: %w", err)
			}

			app.Logger.Debug("Suggestion token usage",
				zap.Int64("input_tokens", result.InputTokens),
				zap.Int64("output_tokens", result.OutputTokens))

			fmt.Printf("\n💡 Rebalancing Suggestions (run %s)\n\n", result.RunID)

			if len(result.Summary.UnderTargetReps) > 0 {
				fmt.Println("Reps below target:")
				for _, gap := range result.Summary.UnderTargetReps {
					fmt.Printf("  • %s: %s (short %s)\n", gap.RepID, formatARR(gap.ARR), formatARR(gap.Gap))
				}
				fmt.Println()
			}

			if len(result.Suggestions) == 0 {
				fmt.Println("No moves suggested.")
				return nil
			}

			for _, s := range result.Suggestions {
				fmt.Printf("  %sP%d%s  %s: %s → %s\n", colorBold, s.Priority, colorReset, s.AccountID, s.FromRepID, s.ToRepID)
				if s.Rationale != "" {
					fmt.Printf("       %s%s%s\n", colorDim, s.Rationale, colorReset)
				}
			}
			fmt.Println()

			if result.SkippedBatches > 0 {
				fmt.Printf("⚠️  %d of %d batches returned unreadable output and were skipped\n\n",
					result.SkippedBatches, result.Batches)
			}
			fmt.Println("Suggestions are advisory. Update owners and re-run 'allocate' to apply them.")

			return nil
		},
	}
}
