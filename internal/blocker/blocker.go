// Package blocker ranks expression clauses by their contribution to the
// expression failing and explains each one.
package blocker

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
	"go.uber.org/zap"
)

// #region analyzer
// Analyzer produces blocker rankings from a finished simulation.
type Analyzer struct {
	config      Config
	constraints *constraint.Analyzer
	logger      *zap.Logger
}

// NewAnalyzer creates a blocker analyzer. A nil logger discards output.
func NewAnalyzer(config Config, model *axis.Model, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		config:      config,
		constraints: constraint.NewAnalyzer(model, logger),
		logger:      logger,
	}
}

// RankBlockers sorts every leaf clause by global failure rate, highest first,
// ties kept in declaration order, and attaches the per-clause analyses. res
// must come from a run of ev. The result is never truncated; use Top for
// display.
func (a *Analyzer) RankBlockers(ev *eval.Evaluator, res *simulation.Result) []Blocker {
	failing := res.SampleCount - res.PassCount
	out := make([]Blocker, 0, len(ev.Leaves()))
	for _, l := range ev.Leaves() {
		out = append(out, a.analyze(ev, res, l, failing))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FailureRate > out[j].FailureRate
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	a.logger.Debug("blockers ranked",
		zap.String("run_id", res.RunID),
		zap.Int("blockers", len(out)))
	return out
}

// Top returns the first MaxBlockers of a ranking, or all of them when
// MaxBlockers is 0.
func (a *Analyzer) Top(ranked []Blocker) []Blocker {
	if a.config.MaxBlockers > 0 && len(ranked) > a.config.MaxBlockers {
		return ranked[:a.config.MaxBlockers]
	}
	return ranked
}

func (a *Analyzer) analyze(ev *eval.Evaluator, res *simulation.Result, l eval.Leaf, failing int) Blocker {
	cmp := l.Comparison()
	ns := res.Breakdown.Find(l.Node.ID)
	b := Blocker{
		ClauseID:             l.Node.ID,
		Description:          l.Node.Description(),
		VarPath:              cmp.VarPath,
		Operator:             cmp.Operator,
		Threshold:            cmp.Threshold,
		FailureCount:         ns.FailureCount,
		FailureRate:          ns.FailureRate,
		InRegimeFailureCount: ns.InRegimeFailureCount,
		InRegimeFailureRate:  ns.InRegimeFailureRate,
		Breakdown:            ns,
	}
	if l.IsPrototype() {
		b.PrototypeID = l.Prototype.ID
	}

	values := make([]float64, len(res.Outcomes))
	for i, o := range res.Outcomes {
		values[i] = o.Leaves[l.Pos].Value
	}
	b.Percentiles = percentiles(values, cmp.Threshold)
	b.NearMiss = a.nearMiss(res, l)
	b.Ceiling = a.ceiling(l)
	b.LastMile = a.lastMile(ev, res, l, failing)
	return b
}

// #endregion analyzer

// #region near-miss
func (a *Analyzer) nearMiss(res *simulation.Result, l eval.Leaf) NearMissAnalysis {
	dom := l.Domain()
	cmp := l.Comparison()
	nm := NearMissAnalysis{Epsilon: a.config.NearMissEpsilon * (dom.Hi - dom.Lo)}
	for _, o := range res.Outcomes {
		obs := o.Leaves[l.Pos]
		if obs.Passed {
			continue
		}
		nm.FailureCount++
		if math.Abs(obs.Value-cmp.Threshold) <= nm.Epsilon {
			nm.NearMissCount++
		}
	}
	if nm.FailureCount > 0 {
		nm.NearMissRate = float64(nm.NearMissCount) / float64(nm.FailureCount)
	}
	nm.Tunable = nm.FailureCount > 0 && nm.NearMissRate >= a.config.TunableShare
	return nm
}

// #endregion near-miss

// #region ceiling
// ceiling works over global domains so it never depends on the sample.
func (a *Analyzer) ceiling(l eval.Leaf) CeilingAnalysis {
	cmp := l.Comparison()
	var c CeilingAnalysis
	if l.IsPrototype() {
		fit := a.constraints.FitClause(l.Node.ID, l.Prototype, cmp.Operator, cmp.Threshold, nil)
		c.GateSatisfiable = fit.Analysis.GatesSatisfiable
		c.Achievable = fit.Achievable
		switch {
		case c.GateSatisfiable:
			c.MinAchievable, c.MaxAchievable = fit.Reachable.Lo, fit.Reachable.Hi
			if fit.ZeroReachable {
				c.MinAchievable = 0
			}
		default:
			// gate never opens: the gated value is always 0
			c.MinAchievable, c.MaxAchievable = 0, 0
		}
	} else {
		dom := l.Domain()
		c.GateSatisfiable = true
		c.MinAchievable, c.MaxAchievable = dom.Lo, dom.Hi
		c.Achievable = gate.Predicate{Operator: cmp.Operator, Threshold: cmp.Threshold}.Satisfiable(dom)
	}

	switch {
	case cmp.Operator.Lower():
		c.Gap = math.Max(0, cmp.Threshold-c.MaxAchievable)
	case cmp.Operator.Upper():
		c.Gap = math.Max(0, c.MinAchievable-cmp.Threshold)
	}
	return c
}

// #endregion ceiling

// #region last-mile
func (a *Analyzer) lastMile(ev *eval.Evaluator, res *simulation.Result, l eval.Leaf, failing int) LastMileAnalysis {
	var lm LastMileAnalysis
	for _, o := range res.Outcomes {
		if !ev.PassesWithOverride(o, l.Pos) {
			continue
		}
		lm.OthersPassCount++
		// only samples the expression currently fails can be gained
		if !o.Passed && !o.Leaves[l.Pos].Passed {
			lm.SoleBlockerCount++
		}
	}
	if lm.OthersPassCount > 0 {
		lm.LastMileFailRate = float64(lm.SoleBlockerCount) / float64(lm.OthersPassCount)
	}
	if res.SampleCount > 0 {
		lm.ImpactPP = float64(lm.SoleBlockerCount) / float64(res.SampleCount) * 100
	}
	lm.Decisive = lm.SoleBlockerCount > 0 &&
		float64(lm.SoleBlockerCount) >= a.config.DecisiveShare*float64(failing)
	return lm
}

// #endregion last-mile

// #region percentiles
func percentiles(values []float64, threshold float64) PercentileAnalysis {
	var p PercentileAnalysis
	if len(values) == 0 {
		p.Shape = ShapeNormal
		return p
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	p.P10 = Quantile(sorted, 0.10)
	p.P25 = Quantile(sorted, 0.25)
	p.P50 = Quantile(sorted, 0.50)
	p.P75 = Quantile(sorted, 0.75)
	p.P90 = Quantile(sorted, 0.90)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	p.Mean = sum / float64(len(sorted))
	var ss float64
	for _, v := range sorted {
		ss += (v - p.Mean) * (v - p.Mean)
	}
	if std := math.Sqrt(ss / float64(len(sorted))); std > 0 {
		p.Skew = 3 * (p.Mean - p.P50) / std
	}
	switch {
	case math.Abs(p.Skew) < 0.3:
		p.Shape = ShapeNormal
	case p.Skew > 0:
		p.Shape = ShapeRightSkewed
	default:
		p.Shape = ShapeLeftSkewed
	}

	below := sort.SearchFloat64s(sorted, threshold)
	p.ThresholdPercentile = float64(below) / float64(len(sorted))
	return p
}

// Quantile interpolates linearly within an ascending slice.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// #endregion percentiles
