package expression

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region kind
// Kind tags the closed set of node variants. Every consumer switches over all
// of them.
type Kind int

const (
	KindLeaf Kind = iota
	KindAnd
	KindOr
	KindNot
	// KindUnsupported wraps operators the engine does not model (e.g. "in").
	// It evaluates as satisfied and is ignored by type detection.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// #endregion kind

// #region domain
// Domain is the part of the state a variable path reads.
type Domain string

const (
	DomainMood          Domain = "moodAxes"
	DomainSexualAxis    Domain = "sexualAxes"
	DomainTrait         Domain = "affectTraits"
	DomainSexualArousal Domain = "sexualArousal"
	DomainEmotion       Domain = "emotions"
	DomainSexualState   Domain = "sexualStates"
)

// Ref is a parsed variable path.
type Ref struct {
	Domain Domain `json:"domain"`
	Name   string `json:"name"`
}

// Prototype reports whether the ref reads a derived prototype intensity.
func (r Ref) Prototype() bool {
	return r.Domain == DomainEmotion || r.Domain == DomainSexualState
}

// #endregion domain

// #region node
// Comparison is a leaf: var <op> threshold.
type Comparison struct {
	VarPath   string        `json:"var_path"`
	Ref       Ref           `json:"ref"`
	Operator  gate.Operator `json:"operator"`
	Threshold float64       `json:"threshold"`
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.VarPath, c.Operator, strconv.FormatFloat(c.Threshold, 'f', -1, 64))
}

// Node is one tree node. Leaf is set only for KindLeaf; Op only for
// KindUnsupported. ID is the dotted child-index path from the root ("0",
// "0.1", "0.1.0").
type Node struct {
	ID       string
	Kind     Kind
	Children []*Node
	Leaf     *Comparison
	Op       string
	Raw      string
	Index    int // pre-order position in Expression.Nodes
}

// Description is a human-readable rendering of the node.
func (n *Node) Description() string {
	switch n.Kind {
	case KindLeaf:
		return n.Leaf.String()
	case KindAnd:
		return fmt.Sprintf("AND (%d clauses)", len(n.Children))
	case KindOr:
		return fmt.Sprintf("OR (%d clauses)", len(n.Children))
	case KindNot:
		return "NOT"
	case KindUnsupported:
		return fmt.Sprintf("unsupported %q: %s", n.Op, n.Raw)
	}
	return n.Raw
}

// #endregion node

// #region expression
// Expression is a parsed, read-only prerequisite tree.
type Expression struct {
	ID     string
	Root   *Node
	Nodes  []*Node // pre-order
	Leaves []*Node // declaration order
}

// Unsupported lists nodes the engine ignores.
func (e *Expression) Unsupported() []*Node {
	var out []*Node
	for _, n := range e.Nodes {
		if n.Kind == KindUnsupported {
			out = append(out, n)
		}
	}
	return out
}

// Leaf returns the leaf with the given id.
func (e *Expression) Leaf(id string) (*Node, bool) {
	for _, n := range e.Leaves {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// #endregion expression

// #region definition
// Definition is the external expression format.
type Definition struct {
	ID            string         `json:"id" yaml:"id"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Prerequisites []Prerequisite `json:"prerequisites" yaml:"prerequisites"`
}

// Prerequisite wraps one JsonLogic-like tree.
type Prerequisite struct {
	Logic any `json:"logic" yaml:"logic"`
}

// #endregion definition

// #region errors
// ErrMalformedExpression is matched by every MalformedExpressionError.
var ErrMalformedExpression = errors.New("malformed expression")

// MalformedExpressionError reports a clause missing required fields, with the
// clause's raw text.
type MalformedExpressionError struct {
	Clause string
	Reason string
}

func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("malformed expression clause %s: %s", e.Clause, e.Reason)
}

func (e *MalformedExpressionError) Is(target error) bool {
	return target == ErrMalformedExpression
}

// #endregion errors
