package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/stats"
)

func newStatsCmd(c *cli) *cobra.Command {
	var week, month int

	cmd := &cobra.Command{
		Use:   "stats <deck>",
		Short: "Show win/loss statistics for a deck",
		Long: "Show win/loss statistics for a deck. --week and --month restrict the\n" +
			"summary to one period, counted from now (0 = current, -1 = previous).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := stdout(cmd)
			now := time.Now()

			var (
				summary stats.Stats
				err     error
			)
			switch {
			case cmd.Flags().Changed("week"):
				tr := stats.WeekRangeFrom(now, week)
				fmt.Fprintf(out, "%s (%s)\n", stats.GetWeekLabel(week), tr.FormatPeriod())
				summary, err = c.decks().StatsInRange(cmd.Context(), args[0], tr)
			case cmd.Flags().Changed("month"):
				tr := stats.MonthRangeFrom(now, month)
				fmt.Fprintf(out, "%s (%s)\n", stats.GetMonthLabel(month), tr.FormatPeriod())
				summary, err = c.decks().StatsInRange(cmd.Context(), args[0], tr)
			default:
				summary, err = c.decks().Stats(cmd.Context(), args[0])
			}
			if err != nil {
				return explain(err)
			}
			printStats(out, summary)

			streaks, err := c.decks().Streaks(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(out, "Current: %s  Longest win streak: %d  Longest loss streak: %d\n",
				stats.FormatCurrentStreak(streaks.CurrentStreak), streaks.LongestWinStreak, streaks.LongestLossStreak)
			return nil
		},
	}
	cmd.Flags().IntVar(&week, "week", 0, "week offset (0 = this week)")
	cmd.Flags().IntVar(&month, "month", 0, "month offset (0 = this month)")
	cmd.MarkFlagsMutuallyExclusive("week", "month")

	return cmd
}

// sortedOpponents orders opponents by losses, most first, then by label.
func sortedOpponents(lossByOpponent map[string]int) []string {
	labels := make([]string, 0, len(lossByOpponent))
	for label := range lossByOpponent {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if lossByOpponent[labels[i]] != lossByOpponent[labels[j]] {
			return lossByOpponent[labels[i]] > lossByOpponent[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}
