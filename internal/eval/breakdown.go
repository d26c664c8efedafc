package eval

import "github.com/danielpatrickdp/exprdiag/internal/expression"

// #region tally
// Tally accumulates per-node counts. Counts are integers, so merging tallies
// from parallel workers in any order gives identical results.
type Tally struct {
	total, inRegime  int
	fail, regimeFail []int
}

// NewTally returns an empty tally sized for the evaluator's expression.
func (ev *Evaluator) NewTally() *Tally {
	n := len(ev.expr.Nodes)
	return &Tally{fail: make([]int, n), regimeFail: make([]int, n)}
}

// Add records one outcome.
func (t *Tally) Add(o Outcome) {
	t.total++
	if o.InRegime {
		t.inRegime++
	}
	for i, pass := range o.Nodes {
		if pass {
			continue
		}
		t.fail[i]++
		if o.InRegime {
			t.regimeFail[i]++
		}
	}
}

// Merge adds another tally's counts into t.
func (t *Tally) Merge(o *Tally) {
	t.total += o.total
	t.inRegime += o.inRegime
	for i := range t.fail {
		t.fail[i] += o.fail[i]
		t.regimeFail[i] += o.regimeFail[i]
	}
}

// Total is the number of outcomes recorded.
func (t *Tally) Total() int { return t.total }

// InRegime is the number of in-regime outcomes recorded.
func (t *Tally) InRegime() int { return t.inRegime }

// #endregion tally

// #region build
// Breakdown converts a tally into the hierarchical tree mirroring the
// expression.
func (ev *Evaluator) Breakdown(t *Tally) *NodeStats {
	var build func(n *expression.Node) *NodeStats
	build = func(n *expression.Node) *NodeStats {
		s := &NodeStats{
			ID:                      n.ID,
			Kind:                    n.Kind.String(),
			Description:             n.Description(),
			EvaluationCount:         t.total,
			FailureCount:            t.fail[n.Index],
			FailureRate:             rate(t.fail[n.Index], t.total),
			InRegimeEvaluationCount: t.inRegime,
			InRegimeFailureCount:    t.regimeFail[n.Index],
			InRegimeFailureRate:     rate(t.regimeFail[n.Index], t.inRegime),
		}
		for _, c := range n.Children {
			s.Children = append(s.Children, build(c))
		}
		return s
	}
	return build(ev.expr.Root)
}

func rate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// #endregion build
