package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/charts"
	"github.com/ramonehamilton/TCG-Companion/internal/stats"
)

var fileSafe = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

func newChartCmd(c *cli) *cobra.Command {
	var (
		outPath string
		open    bool
	)

	cmd := &cobra.Command{
		Use:   "chart <deck>",
		Short: "Write an HTML chart of a deck's win rate over time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := c.decks().LoadDeck(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if len(deck.Battles) == 0 {
				return fmt.Errorf("deck %q has no battles to chart", deck.Name)
			}
			if outPath == "" {
				outPath = fileSafe.Replace(deck.Name) + "-chart.html"
			}

			err = charts.WriteFile(outPath, func(w io.Writer) error {
				return charts.RenderDeckReport(w, deck.Name,
					stats.RunningTotals(deck.Battles), stats.Compute(deck.Battles), charts.DefaultChartConfig())
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Chart written to %s\n", outPath)

			if open {
				return charts.OpenInBrowser(outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <deck>-chart.html)")
	cmd.Flags().BoolVar(&open, "open", false, "open the chart in the default browser")

	return cmd
}
