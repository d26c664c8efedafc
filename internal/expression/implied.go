package expression

import "github.com/danielpatrickdp/exprdiag/internal/gate"

// #region implied
// Reference is the first prototype comparison found in an expression.
type Reference struct {
	Domain      Domain        `json:"domain"`
	PrototypeID string        `json:"prototype_id"`
	Operator    gate.Operator `json:"operator"`
	Threshold   float64       `json:"threshold"`
	ClauseID    string        `json:"clause_id"`
}

// Implied summarises which prototype families an expression reads and which
// prototype it most directly names.
type Implied struct {
	HasEmotions     bool       `json:"has_emotions"`
	HasSexualStates bool       `json:"has_sexual_states"`
	Fallback        bool       `json:"fallback"` // nothing detected; emotion assumed
	Reference       *Reference `json:"reference,omitempty"`
}

// ComputeImpliedPrototype scans comparison leaves reachable through AND/OR
// nodes only. Leaves under NOT, and unsupported operators, are not
// considered. When nothing prototype-typed is found the expression is assumed
// to target emotions. The reference is taken from the first ==, >=, >, <=
// or < leaf; strict equality and != never identify a prototype.
func ComputeImpliedPrototype(e *Expression) Implied {
	var out Implied
	var visit func(n *Node)
	visit = func(n *Node) {
		switch n.Kind {
		case KindAnd, KindOr:
			for _, c := range n.Children {
				visit(c)
			}
		case KindLeaf:
			ref := n.Leaf.Ref
			switch ref.Domain {
			case DomainEmotion:
				out.HasEmotions = true
			case DomainSexualState:
				out.HasSexualStates = true
			default:
				return
			}
			if out.Reference == nil && identifying(n.Leaf.Operator) {
				out.Reference = &Reference{
					Domain:      ref.Domain,
					PrototypeID: ref.Name,
					Operator:    n.Leaf.Operator,
					Threshold:   n.Leaf.Threshold,
					ClauseID:    n.ID,
				}
			}
		case KindNot, KindUnsupported:
		}
	}
	if e != nil && e.Root != nil {
		visit(e.Root)
	}
	if !out.HasEmotions && !out.HasSexualStates {
		out.HasEmotions = true
		out.Fallback = true
	}
	return out
}

func identifying(op gate.Operator) bool {
	return op == gate.OpEQ || op.Inequality()
}

// #endregion implied

// #region references
// PrototypeRefs lists every prototype id read anywhere in the tree, including
// under NOT, in first-seen order.
func PrototypeRefs(e *Expression) []Ref {
	seen := map[Ref]bool{}
	var out []Ref
	for _, l := range e.Leaves {
		if r := l.Leaf.Ref; r.Prototype() && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// AndReachable reports, per node index, whether the path from the root to
// the node passes only through AND nodes.
func AndReachable(e *Expression) []bool {
	out := make([]bool, len(e.Nodes))
	var visit func(n *Node)
	visit = func(n *Node) {
		out[n.Index] = true
		if n.Kind == KindAnd {
			for _, c := range n.Children {
				visit(c)
			}
		}
	}
	visit(e.Root)
	return out
}

// #endregion references
