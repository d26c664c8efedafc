package eval

import (
	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
)

// #region leaf
// Leaf is a comparison bound to what it reads. Exactly one of Axis (for
// moodAxes, sexualAxes, affectTraits and sexualArousal) or Prototype (for
// emotions and sexualStates) is meaningful.
type Leaf struct {
	Pos       int // position in Expression.Leaves
	Node      *expression.Node
	Axis      axis.Axis
	Prototype *prototype.Prototype
}

// IsPrototype reports whether the leaf compares a prototype intensity.
func (l Leaf) IsPrototype() bool {
	return l.Prototype != nil
}

// Comparison is the leaf's parsed comparison.
func (l Leaf) Comparison() *expression.Comparison {
	return l.Node.Leaf
}

// Domain is the range of the compared value in the units the threshold is
// written in: raw for mood, sexual and trait axes; normalized for
// sexualArousal; [0,1] for prototype intensities.
func (l Leaf) Domain() axis.Interval {
	switch {
	case l.Prototype != nil:
		return axis.Interval{Lo: 0, Hi: 1}
	case l.Node.Leaf.Ref.Domain == expression.DomainSexualArousal:
		return l.Axis.NormInterval()
	}
	return axis.Interval{Lo: l.Axis.RawMin, Hi: l.Axis.RawMax}
}

// #endregion leaf

// #region observation
// Observation is what one leaf saw on one state.
type Observation struct {
	Value      float64 // compared value (gated intensity for prototypes)
	Intensity  float64 // ungated intensity; equals Value for axis leaves
	GatePassed bool    // always true for axis leaves
	Passed     bool
}

// Outcome is the evaluation of every node against one state.
type Outcome struct {
	Passed   bool
	InRegime bool
	Nodes    []bool        // pass flag per node, indexed by Node.Index
	Leaves   []Observation // indexed by Leaf.Pos
}

// #endregion observation

// #region breakdown
// NodeStats mirrors one expression node with its pass/fail accounting over
// the global population and over the in-regime subpopulation. For OR nodes
// the counts are the node's own union counts, never derived from children.
type NodeStats struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	Description string       `json:"description"`
	Children    []*NodeStats `json:"children,omitempty"`

	EvaluationCount int     `json:"evaluation_count"`
	FailureCount    int     `json:"failure_count"`
	FailureRate     float64 `json:"failure_rate"`

	InRegimeEvaluationCount int     `json:"in_regime_evaluation_count"`
	InRegimeFailureCount    int     `json:"in_regime_failure_count"`
	InRegimeFailureRate     float64 `json:"in_regime_failure_rate"`
}

// PassCount is the number of evaluations that passed.
func (s *NodeStats) PassCount() int {
	return s.EvaluationCount - s.FailureCount
}

// InRegimePassCount is PassCount restricted to in-regime samples.
func (s *NodeStats) InRegimePassCount() int {
	return s.InRegimeEvaluationCount - s.InRegimeFailureCount
}

// PassRate is 1 - FailureRate, or 0 when never evaluated.
func (s *NodeStats) PassRate() float64 {
	if s.EvaluationCount == 0 {
		return 0
	}
	return float64(s.PassCount()) / float64(s.EvaluationCount)
}

// Find returns the node with the given id within this subtree.
func (s *NodeStats) Find(id string) *NodeStats {
	if s == nil {
		return nil
	}
	if s.ID == id {
		return s
	}
	for _, c := range s.Children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// #endregion breakdown
