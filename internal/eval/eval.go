// Package eval evaluates expression trees against psychological states and
// accumulates hierarchical pass/fail breakdowns.
package eval

import (
	"fmt"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/state"
)

// #region evaluator
// Evaluator is an expression compiled against an axis model and prototype
// registry. It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	expr    *expression.Expression
	leaves  []Leaf
	leafPos []int // node index -> leaf position, -1 for inner nodes
	regime  *regime.Regime
}

// NewEvaluator binds every leaf of e to an axis or prototype. Unknown axes
// fail with axis.UnknownAxisError, unknown prototypes with
// prototype.ErrUnknownPrototype. r selects the in-regime population and may
// be nil.
func NewEvaluator(model *axis.Model, registry *prototype.Registry, e *expression.Expression, r *regime.Regime) (*Evaluator, error) {
	ev := &Evaluator{expr: e, regime: r, leafPos: make([]int, len(e.Nodes))}
	for i := range ev.leafPos {
		ev.leafPos[i] = -1
	}
	for pos, n := range e.Leaves {
		leaf, err := bind(model, registry, n)
		if err != nil {
			return nil, err
		}
		leaf.Pos = pos
		ev.leafPos[n.Index] = pos
		ev.leaves = append(ev.leaves, leaf)
	}
	return ev, nil
}

func bind(model *axis.Model, registry *prototype.Registry, n *expression.Node) (Leaf, error) {
	ref := n.Leaf.Ref
	context := "expression path " + n.Leaf.VarPath
	switch ref.Domain {
	case expression.DomainEmotion, expression.DomainSexualState:
		want := prototype.TypeEmotion
		if ref.Domain == expression.DomainSexualState {
			want = prototype.TypeSexual
		}
		if !registry.Has(ref.Name, want) {
			return Leaf{}, fmt.Errorf("bind %s: %w: %q is not a registered %s prototype",
				n.Leaf.VarPath, prototype.ErrUnknownPrototype, ref.Name, want)
		}
		p, err := registry.GetPrototype(ref.Name)
		if err != nil {
			return Leaf{}, fmt.Errorf("bind %s: %w", n.Leaf.VarPath, err)
		}
		return Leaf{Node: n, Prototype: p}, nil
	}

	a, err := model.LookupIn(ref.Name, context)
	if err != nil {
		return Leaf{}, err
	}
	ok := false
	switch ref.Domain {
	case expression.DomainMood:
		ok = a.Kind == axis.KindMood
	case expression.DomainTrait:
		ok = a.Kind == axis.KindTrait
	case expression.DomainSexualAxis:
		ok = a.Kind == axis.KindSexual || a.Kind == axis.KindDerived
	case expression.DomainSexualArousal:
		ok = a.Kind == axis.KindDerived
	}
	if !ok {
		return Leaf{}, &axis.UnknownAxisError{Name: ref.Name, Context: context}
	}
	return Leaf{Node: n, Axis: a}, nil
}

// Expression returns the compiled expression.
func (ev *Evaluator) Expression() *expression.Expression {
	return ev.expr
}

// Regime returns the regime that defines the in-regime population.
func (ev *Evaluator) Regime() *regime.Regime {
	return ev.regime
}

// Leaves returns the bound leaves in declaration order.
func (ev *Evaluator) Leaves() []Leaf {
	return ev.leaves
}

// #endregion evaluator

// #region evaluate
// Observe computes one leaf's observation on a state.
func (l Leaf) Observe(ps state.PsychState) Observation {
	cmp := l.Node.Leaf
	var o Observation
	switch {
	case l.Prototype != nil:
		o.Intensity = l.Prototype.Intensity(ps)
		o.GatePassed = l.Prototype.GatePasses(ps)
		if o.GatePassed {
			o.Value = o.Intensity
		}
	case cmp.Ref.Domain == expression.DomainSexualArousal:
		o.Value = ps.Norm(l.Axis.Name)
		o.Intensity = o.Value
		o.GatePassed = true
	default:
		o.Value, _ = ps.Raw(l.Axis.Name)
		o.Intensity = o.Value
		o.GatePassed = true
	}
	o.Passed = cmp.Operator.Compare(o.Value, cmp.Threshold)
	return o
}

// Evaluate runs the whole tree on one state. Every node is visited so that
// every node's counts move on every evaluation; the boolean result is the
// same as a short-circuit evaluation.
func (ev *Evaluator) Evaluate(ps state.PsychState) Outcome {
	out := Outcome{
		InRegime: ev.regime.Contains(ps),
		Nodes:    make([]bool, len(ev.expr.Nodes)),
		Leaves:   make([]Observation, len(ev.leaves)),
	}
	for i, l := range ev.leaves {
		out.Leaves[i] = l.Observe(ps)
	}
	out.Passed = ev.walk(ev.expr.Root, func(n *expression.Node) bool {
		return out.Leaves[ev.leafPos[n.Index]].Passed
	}, out.Nodes)
	return out
}

// PassesWithOverride re-evaluates the root from an outcome's leaf
// observations with the leaf at pos forced to pass.
func (ev *Evaluator) PassesWithOverride(o Outcome, pos int) bool {
	return ev.walk(ev.expr.Root, func(n *expression.Node) bool {
		p := ev.leafPos[n.Index]
		return p == pos || o.Leaves[p].Passed
	}, nil)
}

// OthersPass reports whether every other AND-sibling path to the root holds,
// i.e. the expression would pass if the leaf at pos passed, yet the leaf
// itself fails.
func (ev *Evaluator) OthersPass(o Outcome, pos int) bool {
	return !o.Leaves[pos].Passed && ev.PassesWithOverride(o, pos)
}

func (ev *Evaluator) walk(n *expression.Node, leaf func(*expression.Node) bool, record []bool) bool {
	var pass bool
	switch n.Kind {
	case expression.KindLeaf:
		pass = leaf(n)
	case expression.KindAnd:
		pass = true
		for _, c := range n.Children {
			if !ev.walk(c, leaf, record) {
				pass = false
			}
		}
	case expression.KindOr:
		for _, c := range n.Children {
			if ev.walk(c, leaf, record) {
				pass = true
			}
		}
	case expression.KindNot:
		pass = !ev.walk(n.Children[0], leaf, record)
	case expression.KindUnsupported:
		pass = true
	}
	if record != nil {
		record[n.Index] = pass
	}
	return pass
}

// #endregion evaluate
