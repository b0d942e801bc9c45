package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/stats"
)

func newBattleCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battle",
		Short: "Record battle outcomes",
	}

	var opponent string
	record := &cobra.Command{
		Use:   "record <deck> <W|L>",
		Short: "Record a win (W) or loss (L) for a deck",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := c.decks().RecordBattle(cmd.Context(), args[0], args[1], opponent)
			if err != nil {
				return explain(err)
			}
			s := stats.Compute(deck.Battles)
			fmt.Fprintf(stdout(cmd), "Recorded battle #%d for %s. Record: %d-%d (%.2f%%)\n",
				s.TotalBattles, deck.Name, s.Wins, s.Losses, s.WinPercentage)
			return nil
		},
	}
	record.Flags().StringVar(&opponent, "opponent", "", "opponent deck description")

	cmd.AddCommand(record)
	return cmd
}
