package gate

import (
	"errors"
	"fmt"
	"strconv"
)

// #region operator
// Operator is a threshold comparison.
type Operator string

const (
	OpGTE      Operator = ">="
	OpLTE      Operator = "<="
	OpGT       Operator = ">"
	OpLT       Operator = "<"
	OpEQ       Operator = "=="
	OpStrictEQ Operator = "==="
	OpNEQ      Operator = "!="
)

// ParseOperator accepts the comparison keys understood by gates and
// expressions.
func ParseOperator(s string) (Operator, bool) {
	switch op := Operator(s); op {
	case OpGTE, OpLTE, OpGT, OpLT, OpEQ, OpStrictEQ, OpNEQ:
		return op, true
	}
	return "", false
}

// Compare evaluates value <op> threshold.
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpGTE:
		return value >= threshold
	case OpLTE:
		return value <= threshold
	case OpGT:
		return value > threshold
	case OpLT:
		return value < threshold
	case OpEQ, OpStrictEQ:
		return value == threshold
	case OpNEQ:
		return value != threshold
	}
	return false
}

// Mirror returns the operator for the swapped operand order
// (t < x is x > t).
func (op Operator) Mirror() Operator {
	switch op {
	case OpGTE:
		return OpLTE
	case OpLTE:
		return OpGTE
	case OpGT:
		return OpLT
	case OpLT:
		return OpGT
	}
	return op
}

// Lower reports whether the operator passes for values above the threshold.
func (op Operator) Lower() bool {
	return op == OpGTE || op == OpGT
}

// Upper reports whether the operator passes for values below the threshold.
func (op Operator) Upper() bool {
	return op == OpLTE || op == OpLT
}

// Inequality reports whether the operator is one of >=, <=, >, <.
func (op Operator) Inequality() bool {
	return op.Lower() || op.Upper()
}

// #endregion operator

// #region predicate
// Predicate is one gate: a normalized axis value compared to a threshold.
type Predicate struct {
	Axis      string   `json:"axis"`
	Operator  Operator `json:"operator"`
	Threshold float64  `json:"threshold"`
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", p.Axis, p.Operator, strconv.FormatFloat(p.Threshold, 'f', -1, 64))
}

// #endregion predicate

// #region decision
// Failure records one predicate that did not hold.
type Failure struct {
	Index     int
	Predicate Predicate
	Value     float64
}

// Decision is the outcome of evaluating an ordered gate list against one state.
type Decision struct {
	Action   string // "pass" | "block"
	Reason   string
	Passed   bool
	Failures []Failure // non-empty if blocked
}

// #endregion decision

// #region errors
// ErrInvalidPredicate is returned for gate strings that cannot be parsed.
var ErrInvalidPredicate = errors.New("invalid gate predicate")

// #endregion errors

// #region values
// Values supplies normalized axis values by canonical name.
type Values interface {
	Norm(axis string) float64
}

// #endregion values
