package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/pkg/core/services"
)

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "List upcoming rebalance dates from the configured rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")

			app.Logger.Debug("schedule command", zap.Int("count", count))

			dates, err := services.NextRebalanceDates(app.Cfg, time.Now(), count)
			if err != nil {
				return err
			}

			fmt.Printf("\n📅 Upcoming Rebalances (%s)\n\n", app.Cfg.RebalanceRRule)
			for i, date := range dates {
				fmt.Printf("  %2d. %s\n", i+1, date.Local().Format("2006-01-02 (Monday)"))
			}
			if len(dates) < count {
				fmt.Printf("\n%sThe rule ends after %d more occurrences.%s\n", colorDim, len(dates), colorReset)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Int("count", 5, "Number of dates to list")

	return cmd
}
