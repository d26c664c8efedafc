// Package report assembles the markdown diagnostics report. Output depends
// only on its input, so equal inputs render byte-identical reports.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/fit"
	"github.com/danielpatrickdp/exprdiag/internal/recommend"
	"go.uber.org/zap"
)

// #region config
// Config limits table sizes.
type Config struct {
	MaxFitRows int // leaderboard rows; 0 renders all
}

// DefaultConfig returns the report defaults.
func DefaultConfig() Config {
	return Config{MaxFitRows: 10}
}

// #endregion config

// #region generator
// Generator renders reports.
type Generator struct {
	config Config
	logger *zap.Logger
}

// NewGenerator creates a report generator. A nil logger discards output.
func NewGenerator(config Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{config: config, logger: logger}
}

// Generate renders every section in the fixed order.
func (g *Generator) Generate(in Input) string {
	var b strings.Builder
	title := "expression"
	if in.Expression != nil && in.Expression.ID != "" {
		title = in.Expression.ID
	}
	fmt.Fprintf(&b, "# Diagnostics: %s\n\n", title)

	for _, s := range Sections {
		fmt.Fprintf(&b, "## %s\n\n", s)
		switch s {
		case SectionSummary:
			g.summary(&b, in)
		case SectionPrototypeFit:
			g.prototypeFit(&b, in)
		case SectionBlockers:
			g.blockers(&b, in)
		case SectionAxisConstraints:
			g.axisConstraints(&b, in)
		case SectionRecommendations:
			g.recommendations(&b, in)
		}
	}
	out := b.String()
	g.logger.Debug("report generated", zap.String("expression", title), zap.Int("bytes", len(out)))
	return out
}

// #endregion generator

// #region summary
func (g *Generator) summary(b *strings.Builder, in Input) {
	res := in.Result
	if res == nil {
		b.WriteString("No simulation result.\n\n")
		return
	}
	fmt.Fprintf(b, "- Run: `%s` (seed %d)\n", res.RunID, res.Seed)
	fmt.Fprintf(b, "- Trigger rate: %s (%d/%d), %s CI [%s, %s]\n",
		pct(res.TriggerRate), res.PassCount, res.SampleCount,
		pct(res.CI.Level), pct(res.CI.Low), pct(res.CI.High))
	if res.Regime == nil {
		b.WriteString("- Regime: none; in-regime figures equal the global population\n")
	} else {
		label := "declared"
		if res.Regime.Inferred {
			label = "inferred"
		}
		fmt.Fprintf(b, "- Regime (%s): %s\n", label, res.Regime.String())
		fmt.Fprintf(b, "- In-regime trigger rate: %s (%d/%d), %s CI [%s, %s]\n",
			pct(res.InRegimeTriggerRate), res.InRegimePassCount, res.InRegimeCount,
			pct(res.InRegimeCI.Level), pct(res.InRegimeCI.Low), pct(res.InRegimeCI.High))
	}

	if in.Expression != nil {
		if unsupported := in.Expression.Unsupported(); len(unsupported) > 0 {
			b.WriteString("- Ignored operators (evaluated as satisfied):\n")
			for _, n := range unsupported {
				fmt.Fprintf(b, "  - `%s` at %s: `%s`\n", n.Op, n.ID, n.Raw)
			}
		}
	}

	if in.Facts != nil && len(in.Facts.Invariants) > 0 {
		b.WriteString("\nInvariants:\n\n")
		for _, inv := range in.Facts.Invariants {
			mark := "ok"
			if !inv.OK {
				mark = "FAIL"
			}
			fmt.Fprintf(b, "- [%s] %s: %s\n", mark, inv.Name, inv.Message)
		}
	}
	b.WriteString("\n")
}

// #endregion summary

// #region prototype-fit
func (g *Generator) prototypeFit(b *strings.Builder, in Input) {
	lb := in.Leaderboard
	if lb == nil {
		b.WriteString("No prototype fit computed.\n\n")
		return
	}
	fmt.Fprintf(b, "Prototypes ranked by a composite of gate pass rate, share at or above %s and P90 reach.",
		num(lb.Threshold))
	if top, ok := lb.Top(); ok {
		fmt.Fprintf(b, " Best fit: **%s**.", top.PrototypeID)
		if ref := lb.Implied.Reference; ref != nil && ref.PrototypeID != top.PrototypeID {
			fmt.Fprintf(b, " The expression reads **%s**; check it is the intended prototype.", ref.PrototypeID)
		}
	}
	b.WriteString("\n\n")

	fmt.Fprintf(b, "%s %s\n\n", BadgeInRegime, fitScope(lb))

	b.WriteString("| Rank | Prototype | Type | Gate pass | P(>= t) | P50 | P90 | Score | Conflicts |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for i, e := range lb.Entries {
		if g.config.MaxFitRows > 0 && i >= g.config.MaxFitRows {
			break
		}
		name := e.PrototypeID
		if e.IsReference {
			name += " (ref)"
		}
		conflicts := make([]string, 0, len(e.Conflicts))
		for _, c := range e.Conflicts {
			conflicts = append(conflicts, c.Axis)
		}
		fmt.Fprintf(b, "| %d | %s | %s | %d/%d (%s) | %d/%d (%s) | %.3f | %.3f | %.3f | %s |\n",
			e.Rank, name, e.Type,
			e.GatePassCount, lb.PopulationSize, pct(e.GatePassRate),
			e.AboveCount, lb.PopulationSize, pct(e.PAboveThreshold),
			e.P50, e.P90, e.Score, dash(strings.Join(conflicts, ", ")))
	}
	b.WriteString("\n")
}

func fitScope(lb *fit.Leaderboard) string {
	if lb.Population == fit.PopulationGlobal {
		return fmt.Sprintf("Rates are observed over all %d stored samples; no regime was declared or inferred.",
			lb.PopulationSize)
	}
	how := "declared"
	if lb.RegimeInferred {
		how = "inferred"
	}
	return fmt.Sprintf("Rates are observed over the %d stored samples inside the %s regime (%s).",
		lb.PopulationSize, how, lb.Regime)
}

// #endregion prototype-fit

// #region blockers
func (g *Generator) blockers(b *strings.Builder, in Input) {
	if len(in.Blockers) == 0 {
		b.WriteString("No blocking clauses.\n\n")
		return
	}
	b.WriteString("Leaf clauses ranked by failure rate over the full sample. Impact is the pass-rate gain if the clause always passed.\n\n")
	fmt.Fprintf(b, "%s %s\n\n", BadgeAxisOnly,
		"The Reachable column is the exact range over the full axis domains, not an observed rate.")
	b.WriteString("| Rank | Clause | Fail | Fail (in-regime) | Near-miss | Reachable | Impact |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, bl := range in.Blockers {
		reach := fmt.Sprintf("[%s, %s]", num3(bl.Ceiling.MinAchievable), num3(bl.Ceiling.MaxAchievable))
		if !bl.Ceiling.Achievable {
			reach += " unreachable"
		}
		fmt.Fprintf(b, "| %d | `%s` | %d (%s) | %d (%s) | %d/%d | %s | %s |\n",
			bl.Rank, bl.Description,
			bl.FailureCount, pct(bl.FailureRate),
			bl.InRegimeFailureCount, pct(bl.InRegimeFailureRate),
			bl.NearMiss.NearMissCount, bl.NearMiss.FailureCount,
			reach, pp(bl.LastMile.ImpactPP))
	}
	b.WriteString("\n")

	if in.Result != nil && in.Result.Breakdown != nil {
		b.WriteString("Breakdown (pass counts per node):\n\n")
		writeNode(b, in.Result.Breakdown, 0)
		b.WriteString("\n")
	}
}

// writeNode renders a node's own counts. OR rows show the union count.
func writeNode(b *strings.Builder, n *eval.NodeStats, depth int) {
	fmt.Fprintf(b, "%s- [%s] %s: %d/%d (%s)",
		strings.Repeat("  ", depth), n.ID, n.Description,
		n.PassCount(), n.EvaluationCount, pct(n.PassRate()))
	if n.InRegimeEvaluationCount != n.EvaluationCount {
		fmt.Fprintf(b, ", in-regime %d/%d", n.InRegimePassCount(), n.InRegimeEvaluationCount)
	}
	b.WriteString("\n")
	for _, c := range n.Children {
		writeNode(b, c, depth+1)
	}
}

// #endregion blockers

// #region axis-constraints
func (g *Generator) axisConstraints(b *strings.Builder, in Input) {
	if len(in.AxisOnly) == 0 {
		b.WriteString("No prototype clauses to analyse.\n\n")
		return
	}
	b.WriteString("Exact intensity ranges each prototype clause can reach, computed from weights and regime bounds without sampling.\n\n")
	fmt.Fprintf(b, "%s %s\n\n", BadgeAxisOnly,
		"These are reachable ranges under the regime's axis bounds alone, not observed rates.")
	b.WriteString("| Clause | Prototype | Test | Reachable | Gates | Achievable | Conflicts |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, f := range in.AxisOnly {
		gates := "satisfiable"
		switch {
		case !f.Analysis.GatesSatisfiable:
			gates = "unsatisfiable"
		case f.Analysis.GatesAlwaysHold:
			gates = "always hold"
		}
		reach := fmt.Sprintf("[%s, %s]", num3(f.Reachable.Lo), num3(f.Reachable.Hi))
		if !f.Analysis.GatesSatisfiable {
			reach = "-"
		}
		if f.ZeroReachable {
			reach += " or 0"
		}
		conflicts := make([]string, 0, len(f.Analysis.Conflicts))
		for _, c := range f.Analysis.Conflicts {
			conflicts = append(conflicts, fmt.Sprintf("%s (%s)", c.Axis, c.ConflictType))
		}
		achievable := "no"
		if f.Achievable {
			achievable = "yes"
		}
		fmt.Fprintf(b, "| %s | %s | %s %s | %s | %s | %s | %s |\n",
			f.ClauseID, f.Analysis.PrototypeID, f.Operator, num(f.Threshold),
			reach, gates, achievable, dash(strings.Join(conflicts, ", ")))
	}
	b.WriteString("\n")
}

// #endregion axis-constraints

// #region recommendations
func (g *Generator) recommendations(b *strings.Builder, in Input) {
	if len(in.Recommendations) == 0 {
		b.WriteString("No recommendations.\n")
		return
	}
	for i, r := range in.Recommendations {
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, r.Title)
		fmt.Fprintf(b, "- Type: %s | Severity: %s | Confidence: %s", r.Type, r.Severity, r.Confidence)
		if r.ChokeType != "" {
			fmt.Fprintf(b, " | Choke: %s", r.ChokeType)
		}
		b.WriteString("\n")
		fmt.Fprintf(b, "- Impact: %s\n", pp(r.ImpactPP))
		b.WriteString("- Evidence:\n")
		for _, ev := range r.Evidence {
			fmt.Fprintf(b, "  - %s\n", EvidenceLine(ev))
		}
		for _, a := range r.Actions {
			fmt.Fprintf(b, "- Action: %s\n", a)
		}
		if r.PredictedEffect != "" {
			fmt.Fprintf(b, "- Predicted effect: %s\n", r.PredictedEffect)
		}
		b.WriteString("\n")
	}
}

// EvidenceLine renders "label: n/d (p%) | Population: name (N=count)".
func EvidenceLine(ev recommend.Evidence) string {
	return fmt.Sprintf("%s: %d/%d (%s) | Population: %s (N=%d)",
		ev.Label, ev.Numerator, ev.Denominator, pct(ev.Value), ev.Population, ev.PopulationSize)
}

// #endregion recommendations

// #region format
func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func pp(v float64) string {
	return fmt.Sprintf("+%.2f pp", v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func num3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion format
