package gate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
)

// #region parse
// operators in match order: two-character forms must be tried before their
// one-character prefixes.
var parseOrder = []Operator{OpStrictEQ, OpGTE, OpLTE, OpEQ, OpNEQ, OpGT, OpLT}

// Parse reads a gate string such as "valence >= 0.35". The axis name is
// resolved through the model, so aliases are accepted and unknown names fail
// with an UnknownAxisError.
func Parse(model *axis.Model, s string) (Predicate, error) {
	for _, op := range parseOrder {
		idx := strings.Index(s, string(op))
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(s[:idx])
		rhs := strings.TrimSpace(s[idx+len(op):])
		if name == "" || rhs == "" {
			return Predicate{}, fmt.Errorf("%w: %q", ErrInvalidPredicate, s)
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %q: threshold: %v", ErrInvalidPredicate, s, err)
		}
		a, err := model.LookupIn(name, fmt.Sprintf("gate %q", s))
		if err != nil {
			return Predicate{}, err
		}
		return Predicate{Axis: a.Name, Operator: op, Threshold: threshold}, nil
	}
	return Predicate{}, fmt.Errorf("%w: %q: no operator", ErrInvalidPredicate, s)
}

// ParseAll parses an ordered gate list, keeping declaration order.
func ParseAll(model *axis.Model, gates []string) ([]Predicate, error) {
	out := make([]Predicate, 0, len(gates))
	for _, g := range gates {
		p, err := Parse(model, g)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// #endregion parse

// #region evaluate
// Holds evaluates a single predicate against sampled values.
func (p Predicate) Holds(v Values) bool {
	return p.Operator.Compare(v.Norm(p.Axis), p.Threshold)
}

// Evaluate checks every predicate in order. All failures are collected, not
// just the first, so callers can attribute blocking to individual gates.
func Evaluate(preds []Predicate, v Values) Decision {
	var failures []Failure
	for i, p := range preds {
		val := v.Norm(p.Axis)
		if !p.Operator.Compare(val, p.Threshold) {
			failures = append(failures, Failure{Index: i, Predicate: p, Value: val})
		}
	}

	if len(failures) > 0 {
		return Decision{
			Action:   "block",
			Reason:   fmt.Sprintf("gate failed: %s (value %.4f)", failures[0].Predicate, failures[0].Value),
			Passed:   false,
			Failures: failures,
		}
	}
	return Decision{
		Action: "pass",
		Reason: fmt.Sprintf("passed %d gates", len(preds)),
		Passed: true,
	}
}

// Passes is Evaluate without the bookkeeping.
func Passes(preds []Predicate, v Values) bool {
	for _, p := range preds {
		if !p.Holds(v) {
			return false
		}
	}
	return true
}

// #endregion evaluate

// #region satisfiable
// Satisfiable decides exactly whether some value in the closed interval
// satisfies the predicate. An empty interval satisfies nothing.
func (p Predicate) Satisfiable(iv axis.Interval) bool {
	if iv.Empty() {
		return false
	}
	t := p.Threshold
	switch p.Operator {
	case OpGTE:
		return iv.Hi >= t
	case OpGT:
		return iv.Hi > t
	case OpLTE:
		return iv.Lo <= t
	case OpLT:
		return iv.Lo < t
	case OpEQ, OpStrictEQ:
		return iv.Lo <= t && t <= iv.Hi
	case OpNEQ:
		return !(iv.Lo == t && iv.Hi == t)
	}
	return false
}

// AlwaysHolds decides whether every value in the interval satisfies the
// predicate.
func (p Predicate) AlwaysHolds(iv axis.Interval) bool {
	if iv.Empty() {
		return false
	}
	t := p.Threshold
	switch p.Operator {
	case OpGTE:
		return iv.Lo >= t
	case OpGT:
		return iv.Lo > t
	case OpLTE:
		return iv.Hi <= t
	case OpLT:
		return iv.Hi < t
	case OpEQ, OpStrictEQ:
		return iv.Lo == t && iv.Hi == t
	case OpNEQ:
		return t < iv.Lo || t > iv.Hi
	}
	return false
}

// Narrow returns the part of the interval where the predicate can hold,
// treating strict bounds as closed. != leaves the interval unchanged.
func (p Predicate) Narrow(iv axis.Interval) axis.Interval {
	t := p.Threshold
	switch {
	case p.Operator.Lower():
		iv.Lo = max(iv.Lo, t)
	case p.Operator.Upper():
		iv.Hi = min(iv.Hi, t)
	case p.Operator == OpEQ || p.Operator == OpStrictEQ:
		iv = iv.Intersect(axis.Interval{Lo: t, Hi: t})
	}
	return iv
}

// #endregion satisfiable
