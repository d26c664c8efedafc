package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/recommend"
	"go.uber.org/zap"
)

// #region types
// Outcomes of one fixture.
const (
	ActionPass  = "pass"
	ActionFail  = "fail"
	ActionError = "error"
)

// ReplayResult captures the outcome of replaying one fixture through the
// full diagnostics pipeline.
type ReplayResult struct {
	Name     string
	Action   string
	Failures []string // one line per unmet expectation
	Err      error

	TriggerRate float64
	TopBlocker  string
	RunID       string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total  int
	Passed int
	Failed int
	Errors int
}

// OK reports whether every fixture passed.
func (s ReplaySummary) OK() bool {
	return s.Failed == 0 && s.Errors == 0
}

// #endregion types

// #region replay
// Replay runs each fixture in order and checks its expectations. A canceled
// context stops the run; fixtures not reached are omitted.
func Replay(ctx context.Context, svc *diagnostics.Service, fixtures []*Fixture, logger *zap.Logger) []ReplayResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]ReplayResult, 0, len(fixtures))
	for _, f := range fixtures {
		if ctx.Err() != nil {
			break
		}
		res, err := svc.Analyze(ctx, f.ToRequest())
		if err != nil {
			logger.Warn("fixture errored", zap.String("fixture", f.Name), zap.Error(err))
			results = append(results, ReplayResult{Name: f.Name, Action: ActionError, Err: err})
			continue
		}

		r := ReplayResult{
			Name:        f.Name,
			TriggerRate: res.Simulation.TriggerRate,
			RunID:       res.Simulation.RunID,
			Failures:    Check(f.Expected, res),
		}
		if len(res.Blockers) > 0 {
			r.TopBlocker = res.Blockers[0].ClauseID
		}
		r.Action = ActionPass
		if len(r.Failures) > 0 {
			r.Action = ActionFail
		}
		logger.Debug("fixture replayed",
			zap.String("fixture", f.Name),
			zap.String("action", r.Action),
			zap.Int("failures", len(r.Failures)))
		results = append(results, r)
	}
	return results
}

// Check compares a diagnostics result against expectations and returns one
// message per mismatch.
func Check(exp FixtureExpected, res *diagnostics.Result) []string {
	var out []string
	sim := res.Simulation
	if exp.TriggerRate != nil && !exp.TriggerRate.Contains(sim.TriggerRate) {
		out = append(out, fmt.Sprintf("trigger rate %.4f outside %s", sim.TriggerRate, exp.TriggerRate))
	}
	if exp.InRegimeTriggerRate != nil && !exp.InRegimeTriggerRate.Contains(sim.InRegimeTriggerRate) {
		out = append(out, fmt.Sprintf("in-regime trigger rate %.4f outside %s",
			sim.InRegimeTriggerRate, exp.InRegimeTriggerRate))
	}
	if exp.TopBlocker != "" {
		got := ""
		if len(res.Blockers) > 0 {
			got = res.Blockers[0].ClauseID
		}
		if got != exp.TopBlocker {
			out = append(out, fmt.Sprintf("top blocker %q, want %q", got, exp.TopBlocker))
		}
	}

	ids := make([]string, 0, len(exp.ChokeTypes))
	for id := range exp.ChokeTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c, ok := res.Facts.Clause(id)
		if !ok {
			out = append(out, fmt.Sprintf("clause %s missing from facts", id))
			continue
		}
		if c.ChokeType != exp.ChokeTypes[id] {
			out = append(out, fmt.Sprintf("clause %s choke %s, want %s", id, c.ChokeType, exp.ChokeTypes[id]))
		}
	}

	for _, typ := range exp.Recommendations {
		if !hasRecommendation(res.Recommendations, typ) {
			out = append(out, fmt.Sprintf("no %s recommendation", typ))
		}
	}

	if exp.TopPrototype != "" {
		top, _ := res.Leaderboard.Top()
		if top.PrototypeID != exp.TopPrototype {
			out = append(out, fmt.Sprintf("top prototype %q, want %q", top.PrototypeID, exp.TopPrototype))
		}
	}

	for _, id := range exp.Unachievable {
		found := false
		for _, f := range res.AxisOnly {
			if f.ClauseID == id {
				found = true
				if f.Achievable {
					out = append(out, fmt.Sprintf("clause %s is achievable under the regime bounds", id))
				}
			}
		}
		if !found {
			out = append(out, fmt.Sprintf("clause %s has no axis-only fit", id))
		}
	}
	return out
}

func hasRecommendation(recs []recommend.Recommendation, typ string) bool {
	for _, r := range recs {
		if r.Type == typ {
			return true
		}
	}
	return false
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionPass:
			s.Passed++
		case ActionFail:
			s.Failed++
		case ActionError:
			s.Errors++
		}
	}
	return s
}

// #endregion replay
