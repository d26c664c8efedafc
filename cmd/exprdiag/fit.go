package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/danielpatrickdp/exprdiag/internal/fit"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/sampler"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fitSnapshot  string
	fitSamples   int
	fitThreshold float64
	fitJSON      bool
)

// #region fit
var fitCmd = &cobra.Command{
	Use:   "fit <expression-file>",
	Short: "Rank prototypes by how well they fit an expression",
	Long: `Ranks every candidate prototype over freshly sampled states, or over a
stored snapshot with --snapshot. Without --regime the snapshot's regime is
used, and failing that one is inferred from the expression's mood clauses.`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&regimePath, "regime", "", "mood regime file (JSON or YAML)")
	fitCmd.Flags().StringVar(&fitSnapshot, "snapshot", "", "rank over a stored snapshot")
	fitCmd.Flags().IntVarP(&fitSamples, "samples", "n", 0, "sample count when not using a snapshot")
	fitCmd.Flags().Float64Var(&fitThreshold, "threshold", 0, "intensity threshold (default: the expression's)")
	fitCmd.Flags().BoolVar(&fitJSON, "json", false, "print the leaderboard as JSON")
}

func runFit(cmd *cobra.Command, args []string) error {
	def, err := loadExpression(args[0])
	if err != nil {
		return err
	}
	regimeDef, err := loadRegime()
	if err != nil {
		return err
	}
	svc, err := service()
	if err != nil {
		return err
	}

	var contexts []state.PsychState
	if fitSnapshot != "" {
		store, err := state.NewStore(cfg.Storage.DBPath, svc.Model())
		if err != nil {
			return err
		}
		defer store.Close()
		snap, err := store.Load(fitSnapshot)
		if err != nil {
			return err
		}
		contexts = snap.Contexts
		if regimeDef == nil && snap.RegimeJSON != "" {
			if regimeDef, err = regime.Parse([]byte(snap.RegimeJSON)); err != nil {
				return err
			}
		}
		logger.Debug("snapshot loaded", zap.String("id", snap.ID), zap.Int("samples", len(contexts)))
	} else {
		n := fitSamples
		if n == 0 {
			n = cfg.Simulation.SampleCount
		}
		contexts, err = sampler.New(svc.Model(), cfg.Simulation.Seed).Sample(n, nil)
		if err != nil {
			return err
		}
	}

	var threshold *float64
	if cmd.Flags().Changed("threshold") {
		threshold = &fitThreshold
	}
	lb, err := svc.RankPrototypes(def, regimeDef, contexts, threshold)
	if err != nil {
		return err
	}
	if fitJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(lb)
	}
	return printLeaderboard(cmd, lb)
}

func printLeaderboard(cmd *cobra.Command, lb *fit.Leaderboard) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Population: %s (N=%d)", lb.Population, lb.PopulationSize)
	if lb.Regime != "" {
		fmt.Fprintf(out, ", regime %s", lb.Regime)
		if lb.RegimeInferred {
			fmt.Fprint(out, " (inferred)")
		}
	}
	fmt.Fprintf(out, ", threshold %g\n\n", lb.Threshold)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPROTOTYPE\tTYPE\tGATE PASS\tP(>=T)\tP50\tP90\tSCORE")
	for _, e := range lb.Entries {
		name := e.PrototypeID
		if e.IsReference {
			name += "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			e.Rank, name, e.Type, e.GatePassRate, e.PAboveThreshold, e.P50, e.P90, e.Score)
	}
	return w.Flush()
}

// #endregion fit
