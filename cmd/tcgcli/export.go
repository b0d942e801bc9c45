package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/export"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		kindFlag   string
		formatFlag string
		outPath    string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "export <deck>",
		Short: "Export a deck's battles or cards as CSV or JSON",
		Long: "Export a deck's battles or cards as CSV or JSON. Output goes to stdout\n" +
			"unless --out is given; use --out - for stdout explicitly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := export.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			deck, err := c.decks().LoadDeck(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			rows := export.Rows(deck, kind)

			if outPath == "" || outPath == "-" {
				return export.ExportToWriter(stdout(cmd), format, rows, true)
			}

			exporter := export.NewExporter(export.Options{
				Format:     format,
				FilePath:   outPath,
				PrettyJSON: true,
				Overwrite:  overwrite,
			})
			if err := exporter.Export(rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s of %s to %s\n", kind, deck.Name, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", string(export.KindBattles), `what to export ("battles" or "cards")`)
	cmd.Flags().StringVar(&formatFlag, "format", string(export.FormatCSV), `output format ("csv" or "json")`)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing output file")

	return cmd
}

