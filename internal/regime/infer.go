package regime

import (
	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region infer
// InferFromExpression derives a regime from moodAxes comparisons that every
// passing state must satisfy, i.e. leaves reached from the root through AND
// nodes only. Raw thresholds are normalized. Axes whose inferred bounds
// contradict each other are left unconstrained. Returns nil when nothing can
// be inferred.
func InferFromExpression(model *axis.Model, e *expression.Expression) (*Regime, error) {
	reach := expression.AndReachable(e)
	bounds := map[string]axis.Interval{}
	var order []string

	for _, leaf := range e.Leaves {
		if !reach[leaf.Index] || leaf.Leaf.Ref.Domain != expression.DomainMood {
			continue
		}
		a, err := model.LookupIn(leaf.Leaf.Ref.Name, "expression "+leaf.Leaf.VarPath)
		if err != nil {
			return nil, err
		}
		if a.Kind != axis.KindMood {
			return nil, &axis.UnknownAxisError{Name: leaf.Leaf.Ref.Name, Context: "moodAxes path " + leaf.Leaf.VarPath}
		}

		iv, seen := bounds[a.Name]
		if !seen {
			iv = a.NormInterval()
			order = append(order, a.Name)
		}
		t := a.Normalize(leaf.Leaf.Threshold)
		switch op := leaf.Leaf.Operator; {
		case op.Lower():
			iv.Lo = max(iv.Lo, t)
		case op.Upper():
			iv.Hi = min(iv.Hi, t)
		case op == gate.OpEQ || op == gate.OpStrictEQ:
			iv = iv.Intersect(axis.Interval{Lo: t, Hi: t})
		}
		bounds[a.Name] = iv
	}

	def := Definition{}
	for _, name := range order {
		iv := bounds[name]
		a, _ := model.Lookup(name)
		if iv.Empty() || iv == a.NormInterval() {
			continue
		}
		def[name] = Bound{Min: Ptr(iv.Lo), Max: Ptr(iv.Hi)}
	}
	r, err := New(model, def)
	if err != nil || r == nil {
		return r, err
	}
	r.Inferred = true
	return r, nil
}

// #endregion infer
