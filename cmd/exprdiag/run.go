package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runSamples      int
	runSeed         uint64
	runFitThreshold float64
	runPretty       bool
	runJSON         bool
	runSave         bool
)

// #region run
var runCmd = &cobra.Command{
	Use:   "run <expression-file>",
	Short: "Simulate an expression and print the diagnostics report",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnostics,
}

func init() {
	runCmd.Flags().StringVar(&regimePath, "regime", "", "mood regime file (JSON or YAML)")
	runCmd.Flags().IntVarP(&runSamples, "samples", "n", 0, "sample count (default from config)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "sampler seed (default from config)")
	runCmd.Flags().Float64Var(&runFitThreshold, "fit-threshold", 0, "prototype fit threshold")
	runCmd.Flags().BoolVar(&runPretty, "pretty", false, "render the report for the terminal")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print structured results as JSON")
	runCmd.Flags().BoolVar(&runSave, "save", false, "store the sampled states as a snapshot")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
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

	req := diagnostics.Request{
		Definition:  def,
		Regime:      regimeDef,
		SampleCount: runSamples,
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &runSeed
	}
	if cmd.Flags().Changed("fit-threshold") {
		req.FitThreshold = &runFitThreshold
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := svc.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if runSave {
		id, err := saveSnapshot(svc, res, regimeDef)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved snapshot %s\n", id)
	}

	out := cmd.OutOrStdout()
	switch {
	case runJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case runPretty:
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("init renderer: %w", err)
		}
		rendered, err := renderer.Render(res.Report)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		_, err = fmt.Fprint(out, rendered)
		return err
	}
	_, err = fmt.Fprint(out, res.Report)
	return err
}

func saveSnapshot(svc *diagnostics.Service, res *diagnostics.Result, regimeDef regime.Definition) (string, error) {
	var regimeJSON string
	if len(regimeDef) > 0 {
		data, err := json.Marshal(regimeDef)
		if err != nil {
			return "", fmt.Errorf("marshal regime: %w", err)
		}
		regimeJSON = string(data)
	}

	store, err := state.NewStore(cfg.Storage.DBPath, svc.Model())
	if err != nil {
		return "", err
	}
	defer store.Close()

	id, err := store.Save(state.Snapshot{
		ExpressionID: res.Simulation.ExpressionID,
		Seed:         res.Simulation.Seed,
		RegimeJSON:   regimeJSON,
		Contexts:     res.Simulation.StoredContexts,
	})
	if err != nil {
		return "", err
	}
	logger.Info("snapshot saved",
		zap.String("id", id),
		zap.Int("samples", len(res.Simulation.StoredContexts)))
	return id, nil
}

// #endregion run
