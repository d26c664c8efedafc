// Package constraint performs exact, sampling-free analysis of prototype
// intensity ranges and gate satisfiability under axis bounds.
package constraint

import (
	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"go.uber.org/zap"
)

// #region analyzer
// Analyzer computes exact ranges. It is stateless.
type Analyzer struct {
	model  *axis.Model
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer. A nil logger discards output.
func NewAnalyzer(model *axis.Model, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{model: model, logger: logger}
}

// #endregion analyzer

// #region analyze
// AnalyzeAxisConstraints computes p's achievable intensity range under
// bounds (normalized, keyed by canonical axis; missing axes use their full
// domain). Each weight independently takes the end of its interval that
// minimises or maximises its term. Gates are checked exactly against the
// same bounds, narrowing per axis as predicates accumulate.
func (a *Analyzer) AnalyzeAxisConstraints(p *prototype.Prototype, bounds map[string]axis.Interval) Analysis {
	out := Analysis{PrototypeID: p.ID}
	out.Min, out.Max = p.IntensityRange(a.model, bounds)

	for _, w := range p.Weights {
		iv := a.interval(bounds, w.Axis)
		lo, hi := w.Value*iv.Lo, w.Value*iv.Hi
		if lo > hi {
			lo, hi = hi, lo
		}
		out.Axes = append(out.Axes, AxisRange{
			Axis: w.Axis, Weight: w.Value, Interval: iv,
			ContributionMin: lo, ContributionMax: hi,
		})

		rb, declared := bounds[w.Axis]
		if !declared {
			continue
		}
		ax, err := a.model.Lookup(w.Axis)
		if err != nil {
			continue
		}
		mid := ax.NormMid()
		switch {
		case w.Value > 0 && rb.Hi < mid:
			out.Conflicts = append(out.Conflicts, AxisConflict{
				Axis: w.Axis, Weight: w.Value, RegimeMin: rb.Lo, RegimeMax: rb.Hi,
				ConflictType: ConflictPositiveWeightLowMax,
			})
		case w.Value < 0 && rb.Lo > mid:
			out.Conflicts = append(out.Conflicts, AxisConflict{
				Axis: w.Axis, Weight: w.Value, RegimeMin: rb.Lo, RegimeMax: rb.Hi,
				ConflictType: ConflictNegativeWeightHighMin,
			})
		}
	}

	box, statuses, ok := a.GateBox(p.Gates, bounds)
	out.Gates = statuses
	out.GatesSatisfiable = ok
	out.GatesAlwaysHold = true
	for _, g := range statuses {
		if !g.AlwaysHolds {
			out.GatesAlwaysHold = false
		}
	}
	if ok {
		out.GatedMin, out.GatedMax = p.IntensityRange(a.model, box)
	}

	a.logger.Debug("axis constraints analyzed",
		zap.String("prototype", p.ID),
		zap.Float64("min", out.Min),
		zap.Float64("max", out.Max),
		zap.Bool("gates_satisfiable", out.GatesSatisfiable),
		zap.Int("conflicts", len(out.Conflicts)))
	return out
}

// GateBox narrows bounds by each gate in order. It reports every gate's
// status against the interval in force when it is applied, and whether all
// gates can hold together. Gates on different axes are independent, so the
// box is exact for conjunctions of single-axis predicates.
func (a *Analyzer) GateBox(gates []gate.Predicate, bounds map[string]axis.Interval) (map[string]axis.Interval, []GateStatus, bool) {
	box := make(map[string]axis.Interval, len(bounds))
	for k, v := range bounds {
		box[k] = v
	}
	ok := true
	statuses := make([]GateStatus, 0, len(gates))
	for _, g := range gates {
		iv := a.interval(box, g.Axis)
		st := GateStatus{
			Predicate:   g,
			Interval:    iv,
			Satisfiable: g.Satisfiable(iv),
			AlwaysHolds: g.AlwaysHolds(iv),
		}
		statuses = append(statuses, st)
		if !st.Satisfiable {
			ok = false
			continue
		}
		box[g.Axis] = g.Narrow(iv)
	}
	return box, statuses, ok
}

func (a *Analyzer) interval(bounds map[string]axis.Interval, name string) axis.Interval {
	if iv, ok := bounds[name]; ok {
		return iv
	}
	ax, err := a.model.Lookup(name)
	if err != nil {
		return axis.Interval{}
	}
	return ax.NormInterval()
}

// #endregion analyze

// #region axis-only-fit
// FitClause decides, without sampling, whether "p.intensity op threshold"
// can hold for some state inside bounds. The clause reads gated intensity:
// when a gate can fail the value 0 is reachable as well.
func (a *Analyzer) FitClause(clauseID string, p *prototype.Prototype, op gate.Operator, threshold float64, bounds map[string]axis.Interval) AxisOnlyFit {
	an := a.AnalyzeAxisConstraints(p, bounds)
	fit := AxisOnlyFit{
		ClauseID:      clauseID,
		Operator:      op,
		Threshold:     threshold,
		Analysis:      an,
		ZeroReachable: !an.GatesAlwaysHold,
		Reachable:     axis.Interval{Lo: 1, Hi: 0},
	}
	if an.GatesSatisfiable {
		fit.Reachable = axis.Interval{Lo: an.GatedMin, Hi: an.GatedMax}
	}
	pred := gate.Predicate{Operator: op, Threshold: threshold}
	fit.Achievable = pred.Satisfiable(fit.Reachable) ||
		(fit.ZeroReachable && op.Compare(0, threshold))
	return fit
}

// #endregion axis-only-fit
