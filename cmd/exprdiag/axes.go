package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/spf13/cobra"
)

// #region axes
var axesCmd = &cobra.Command{
	Use:   "axes",
	Short: "List canonical axes, their domains and aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		model := axis.NewModel()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AXIS\tKIND\tRAW\tNORMALIZED")
		for _, a := range model.All() {
			fmt.Fprintf(w, "%s\t%s\t[%g, %g]\t[%g, %g]\n", a.Name, a.Kind, a.RawMin, a.RawMax, a.NormMin, a.NormMax)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		for _, pair := range model.Aliases() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", pair[0], pair[1])
		}
		return nil
	},
}

// #endregion axes
