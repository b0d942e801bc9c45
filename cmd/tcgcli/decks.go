package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/stats"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

func newDecksCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List, create, show and delete decks",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all decks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := c.decks().ListDecks(cmd.Context())
				if err != nil {
					return explain(err)
				}
				out := stdout(cmd)
				if len(names) == 0 {
					fmt.Fprintln(out, "No decks yet. Create one with: tcgcli decks create <name>")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty deck",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deck, err := c.decks().CreateDeck(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				fmt.Fprintf(stdout(cmd), "Created deck %q\n", deck.Name)
				printCatalogWarning(stdout(cmd), deck)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show a deck's cards and record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deck, err := c.decks().LoadDeck(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				printDeck(stdout(cmd), deck)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a deck and its battle history",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.decks().DeleteDeck(cmd.Context(), args[0]); err != nil {
					return explain(err)
				}
				fmt.Fprintf(stdout(cmd), "Deleted deck %q\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

func printDeck(out io.Writer, deck *models.Deck) {
	fmt.Fprintf(out, "Deck: %s (%d cards)\n", deck.Name, deck.TotalCards())
	if deck.LoadStatus == models.LoadStatusReset {
		fmt.Fprintln(out, "Note: the saved deck file was unreadable and has been reset.")
	}
	printCatalogWarning(out, deck)

	if len(deck.Cards) == 0 {
		fmt.Fprintln(out, "No cards.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tCARD\tSET\tCOUNT")
		for i, entry := range deck.Cards {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i, entry.Name, entry.Set, entry.Count)
		}
		_ = w.Flush()
	}

	fmt.Fprintln(out)
	printStats(out, stats.Compute(deck.Battles))
}

func printStats(out io.Writer, s stats.Stats) {
	fmt.Fprintf(out, "Battles: %d  Wins: %d  Losses: %d  Win rate: %.2f%%\n",
		s.TotalBattles, s.Wins, s.Losses, s.WinPercentage)
	if len(s.LossByOpponent) == 0 {
		return
	}

	fmt.Fprintln(out, "Losses by opponent:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, opp := range sortedOpponents(s.LossByOpponent) {
		label := opp
		if label == "" {
			label = "(unnamed)"
		}
		fmt.Fprintf(w, "  %s\t%d\n", label, s.LossByOpponent[opp])
	}
	_ = w.Flush()
}

func printCatalogWarning(out io.Writer, deck *models.Deck) {
	if deck.CatalogWarning != "" {
		fmt.Fprintf(out, "Warning: %s\n", deck.CatalogWarning)
	}
}
