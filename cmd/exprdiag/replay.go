package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/replay"
	"github.com/spf13/cobra"
)

// #region replay
var replayCmd = &cobra.Command{
	Use:   "replay <fixture-file-or-dir>...",
	Short: "Replay fixtures and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	var fixtures []*replay.Fixture
	for _, path := range args {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			loaded, err := replay.LoadDir(path)
			if err != nil {
				return err
			}
			fixtures = append(fixtures, loaded...)
			continue
		}
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		fixtures = append(fixtures, f)
	}

	svc, err := service()
	if err != nil {
		return err
	}
	results := replay.Replay(context.Background(), svc, fixtures, logger)

	out := cmd.OutOrStdout()
	for _, r := range results {
		switch r.Action {
		case replay.ActionPass:
			fmt.Fprintf(out, "PASS  %s (trigger %.4f)\n", r.Name, r.TriggerRate)
		case replay.ActionFail:
			fmt.Fprintf(out, "FAIL  %s\n      %s\n", r.Name, strings.Join(r.Failures, "\n      "))
		case replay.ActionError:
			fmt.Fprintf(out, "ERROR %s: %v\n", r.Name, r.Err)
		}
	}
	s := replay.Summarize(results)
	fmt.Fprintf(out, "\n%d fixtures: %d passed, %d failed, %d errors\n", s.Total, s.Passed, s.Failed, s.Errors)
	if !s.OK() {
		return fmt.Errorf("replay failed")
	}
	return nil
}

// #endregion replay
