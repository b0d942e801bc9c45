package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCardsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Search the catalog and edit deck cards",
	}

	var limit int
	search := &cobra.Command{
		Use:   "search [term]",
		Short: "Search catalog cards by name or set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			out := stdout(cmd)
			if warning := c.decks().Catalog().Warning(); warning != "" {
				fmt.Fprintf(out, "Warning: %s\n", warning)
			}

			cards := c.decks().SearchCards(term, limit)
			if len(cards) == 0 {
				fmt.Fprintln(out, "No matching cards.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSET")
			for _, card := range cards {
				fmt.Fprintf(w, "%s\t%s\t%s\n", card.ID, card.Name, card.Set)
			}
			return w.Flush()
		},
	}
	search.Flags().IntVar(&limit, "limit", 20, "maximum number of results (0 for all)")

	add := &cobra.Command{
		Use:   "add <deck> <card-id>",
		Short: "Add one copy of a catalog card to a deck",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := c.decks().AddCardByID(cmd.Context(), args[0], args[1])
			if err != nil {
				return explain(err)
			}
			card, _ := c.decks().Catalog().Lookup(args[1])
			for _, entry := range deck.Cards {
				if entry.CardID == card.ID {
					fmt.Fprintf(stdout(cmd), "%s now has %d x %s (%s)\n", deck.Name, entry.Count, entry.Name, entry.Set)
					break
				}
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <deck> <index>",
		Short: "Remove the card entry at a position shown by 'decks show'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be a number: %q", args[1])
			}
			deck, err := c.decks().RemoveCardAt(cmd.Context(), args[0], index)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(stdout(cmd), "Removed entry %d from %s (%d entries left)\n", index, deck.Name, len(deck.Cards))
			return nil
		},
	}

	cmd.AddCommand(search, add, remove)
	return cmd
}
