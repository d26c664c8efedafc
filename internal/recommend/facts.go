package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
	"go.uber.org/zap"
)

// #region builder
// Population names used in evidence.
const (
	PopulationGlobal   = "global"
	PopulationInRegime = "in-regime"
)

// FactsBuilder turns a simulation, its blockers and the axis-only analysis
// into Facts.
type FactsBuilder struct {
	config Config
	logger *zap.Logger
}

// NewFactsBuilder creates a builder. A nil logger discards output.
func NewFactsBuilder(config Config, logger *zap.Logger) *FactsBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactsBuilder{config: config, logger: logger}
}

// Build gathers per-clause evidence over the in-regime population (the whole
// sample when there is no regime) and checks the invariants.
func (b *FactsBuilder) Build(ev *eval.Evaluator, res *simulation.Result, blockers []blocker.Blocker, axisOnly []constraint.AxisOnlyFit) *Facts {
	f := &Facts{
		ExpressionID:      res.ExpressionID,
		SampleCount:       res.SampleCount,
		PassCount:         res.PassCount,
		Population:        PopulationGlobal,
		PopulationSize:    res.InRegimeCount,
		PopulationPassing: res.InRegimePassCount,
	}
	if res.Regime != nil {
		f.Population = PopulationInRegime
	}

	byClause := make(map[string]blocker.Blocker, len(blockers))
	for _, bl := range blockers {
		byClause[bl.ClauseID] = bl
	}
	fits := make(map[string]constraint.AxisOnlyFit, len(axisOnly))
	for _, fit := range axisOnly {
		fits[fit.ClauseID] = fit
	}

	for _, l := range ev.Leaves() {
		cf := b.clause(res, l)
		if bl, ok := byClause[cf.ClauseID]; ok {
			cf.SoleBlockerCount = bl.LastMile.SoleBlockerCount
			cf.OthersPassCount = bl.LastMile.OthersPassCount
			cf.ImpactPP = bl.LastMile.ImpactPP
			cf.Decisive = bl.LastMile.Decisive
			cf.GlobalFailureCount = bl.FailureCount
			nm, ceil := bl.NearMiss, bl.Ceiling
			cf.NearMiss, cf.Ceiling = &nm, &ceil
		}
		if fit, ok := fits[cf.ClauseID]; ok {
			cf.Conflicts = fit.Analysis.Conflicts
		}
		f.Clauses = append(f.Clauses, cf)
	}

	f.Invariants = b.invariants(ev, res, f)
	for _, inv := range f.Invariants {
		if !inv.OK {
			b.logger.Warn("facts invariant failed",
				zap.String("expression", f.ExpressionID),
				zap.String("invariant", inv.Name),
				zap.String("message", inv.Message))
		}
	}
	return f
}

func (b *FactsBuilder) clause(res *simulation.Result, l eval.Leaf) ClauseFacts {
	cmp := l.Comparison()
	cf := ClauseFacts{
		ClauseID:    l.Node.ID,
		Description: l.Node.Description(),
		Operator:    cmp.Operator,
		Threshold:   cmp.Threshold,
		ChokeType:   ChokeNone,
	}
	if l.IsPrototype() {
		cf.PrototypeID = l.Prototype.ID
	}

	var values []float64
	predFails := map[int]int{}
	for i, o := range res.Outcomes {
		if !o.InRegime {
			continue
		}
		obs := o.Leaves[l.Pos]
		cf.PopulationSize++
		values = append(values, obs.Value)
		if obs.GatePassed {
			cf.GatePassCount++
			if obs.Passed {
				cf.PassGivenGateCount++
			}
		} else {
			cf.GateFailCount++
			if l.IsPrototype() {
				for _, fl := range gate.Evaluate(l.Prototype.Gates, res.StoredContexts[i]).Failures {
					predFails[fl.Index]++
				}
			}
		}
		if !obs.Passed {
			cf.FailureCount++
			if !obs.GatePassed {
				cf.GateFailedFailures++
			}
		}
	}

	cf.FailureRate = ratio(cf.FailureCount, cf.PopulationSize)
	cf.GateFailRate = ratio(cf.GateFailCount, cf.PopulationSize)
	cf.PassGivenGate = ratio(cf.PassGivenGateCount, cf.GatePassCount)
	cf.GateShare = ratio(cf.GateFailedFailures, cf.FailureCount)
	if l.IsPrototype() {
		for idx, g := range l.Prototype.Gates {
			if n := predFails[idx]; n > 0 {
				cf.GateFailures = append(cf.GateFailures, PredicateFailure{Predicate: g, Count: n})
			}
		}
		sort.SliceStable(cf.GateFailures, func(i, j int) bool {
			return cf.GateFailures[i].Count > cf.GateFailures[j].Count
		})
	}
	cf.ChokeType = b.chokeType(cf)
	if cf.ChokeType == ChokeThreshold || cf.ChokeType == ChokeMixed {
		cf.Suggestion = b.suggest(cf, values)
	}
	return cf
}

// chokeType classifies a failing clause by the share of its failures that
// happened with the gate closed. Axis clauses have no gate and are always
// threshold chokes.
func (b *FactsBuilder) chokeType(cf ClauseFacts) string {
	switch {
	case cf.FailureCount == 0:
		return ChokeNone
	case cf.GateShare >= b.config.GateChokeShare:
		return ChokeGate
	case cf.GateShare <= b.config.ThresholdChokeShare:
		return ChokeThreshold
	}
	return ChokeMixed
}

// suggest finds the threshold at which the clause would pass for
// TargetClausePassRate of the population, or a quarter more than now when
// it already does. The threshold is rounded to two decimals and the
// predicted pass count is taken at the rounded value.
func (b *FactsBuilder) suggest(cf ClauseFacts, values []float64) *ThresholdSuggestion {
	if !cf.Operator.Inequality() || len(values) == 0 {
		return nil
	}
	target := b.config.TargetClausePassRate
	if current := 1 - cf.FailureRate; current >= target {
		target = math.Min(1, current+0.25)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q := 1 - target
	if cf.Operator.Upper() {
		q = target
	}
	t := math.Round(blocker.Quantile(sorted, q)*100) / 100
	s := &ThresholdSuggestion{Threshold: t, PopulationSize: len(values)}
	for _, v := range values {
		if cf.Operator.Compare(v, t) {
			s.PredictedPass++
		}
	}
	return s
}

// #endregion builder

// #region invariants
func (b *FactsBuilder) invariants(ev *eval.Evaluator, res *simulation.Result, f *Facts) []Invariant {
	var out []Invariant

	out = append(out, Invariant{
		Name: "root-matches-pass-count",
		OK:   res.Breakdown.PassCount() == res.PassCount,
		Message: fmt.Sprintf("breakdown root passes %d, simulation passes %d",
			res.Breakdown.PassCount(), res.PassCount),
	})

	popOK := f.PopulationSize <= f.SampleCount && f.PopulationPassing <= f.PopulationSize
	out = append(out, Invariant{
		Name: "population-consistency",
		OK:   popOK,
		Message: fmt.Sprintf("%s population %d of %d samples, %d passing",
			f.Population, f.PopulationSize, f.SampleCount, f.PopulationPassing),
	})
	out = append(out, Invariant{
		Name:    "population-nonempty",
		OK:      f.PopulationSize > 0,
		Message: fmt.Sprintf("%s population has %d samples", f.Population, f.PopulationSize),
	})

	var walk func(n *eval.NodeStats)
	walk = func(n *eval.NodeStats) {
		if len(n.Children) > 0 {
			lo, hi, sum := n.Children[0].PassCount(), n.Children[0].PassCount(), 0
			for _, c := range n.Children {
				lo = min(lo, c.PassCount())
				hi = max(hi, c.PassCount())
				sum += c.PassCount()
			}
			switch n.Kind {
			case expression.KindAnd.String():
				out = append(out, Invariant{
					Name:    "and-bound:" + n.ID,
					OK:      n.PassCount() <= lo,
					Message: fmt.Sprintf("AND passes %d, weakest child %d", n.PassCount(), lo),
				})
			case expression.KindOr.String():
				out = append(out, Invariant{
					Name:    "or-union-bounds:" + n.ID,
					OK:      n.PassCount() >= hi && n.PassCount() <= sum,
					Message: fmt.Sprintf("OR passes %d, children max %d sum %d", n.PassCount(), hi, sum),
				})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(res.Breakdown)

	if root := ev.Expression().Root; root.Kind == expression.KindAnd {
		n := andPassCount(res, root)
		out = append(out, Invariant{
			Name:    "and-chain:" + root.ID,
			OK:      n == res.PassCount,
			Message: fmt.Sprintf("samples passing every AND child %d, simulation passes %d", n, res.PassCount),
		})
	}

	failing := res.SampleCount - res.PassCount
	for _, c := range f.Clauses {
		if c.NearMiss == nil {
			continue
		}
		out = append(out, Invariant{
			Name: "sole-blocker-bound:" + c.ClauseID,
			OK:   c.SoleBlockerCount <= min(c.GlobalFailureCount, failing),
			Message: fmt.Sprintf("sole blocker %d, clause failures %d, failing samples %d",
				c.SoleBlockerCount, c.GlobalFailureCount, failing),
		})
		if f.Population == PopulationGlobal {
			out = append(out, Invariant{
				Name: "clause-failures-agree:" + c.ClauseID,
				OK:   c.FailureCount == c.GlobalFailureCount,
				Message: fmt.Sprintf("facts count %d failures, blocker analysis %d",
					c.FailureCount, c.GlobalFailureCount),
			})
		}
	}
	return out
}

// andPassCount recounts, from per-sample node outcomes, the samples where
// every child of the root AND passed.
func andPassCount(res *simulation.Result, root *expression.Node) int {
	n := 0
	for _, o := range res.Outcomes {
		pass := true
		for _, c := range root.Children {
			if !o.Nodes[c.Index] {
				pass = false
				break
			}
		}
		if pass {
			n++
		}
	}
	return n
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// #endregion invariants
