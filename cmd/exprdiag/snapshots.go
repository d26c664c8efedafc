package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/exprdiag/internal/state"
	"github.com/spf13/cobra"
)

var (
	snapshotsLimit  int
	snapshotsDelete string
)

// #region snapshots
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List or delete stored sample snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshots,
}

func init() {
	snapshotsCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "maximum rows")
	snapshotsCmd.Flags().StringVar(&snapshotsDelete, "delete", "", "delete the snapshot with this id")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	svc, err := service()
	if err != nil {
		return err
	}
	store, err := state.NewStore(cfg.Storage.DBPath, svc.Model())
	if err != nil {
		return err
	}
	defer store.Close()

	if snapshotsDelete != "" {
		if err := store.Delete(snapshotsDelete); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", snapshotsDelete)
		return nil
	}

	infos, err := store.List(snapshotsLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPRESSION\tSEED\tSAMPLES\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			info.ID, info.ExpressionID, info.Seed, info.SampleCount, info.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// #endregion snapshots
