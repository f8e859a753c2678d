package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/market"
)

func newInstrumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "List the instruments the engine knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tPIP SIZE\tPIP VALUE\tPRECISION")
			for _, sym := range market.Symbols() {
				p, err := market.Lookup(sym)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%g\t%g\t%d\n", p.Symbol, p.PipSize, p.PipValue, p.Precision)
			}
			return tw.Flush()
		},
	}
}
