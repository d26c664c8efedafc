package gate

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
)

type mapValues map[string]float64

func (m mapValues) Norm(name string) float64 { return m[name] }

func TestParseGate(t *testing.T) {
	model := axis.NewModel()
	cases := []struct {
		in   string
		want Predicate
	}{
		{"valence >= 0.35", Predicate{Axis: "valence", Operator: OpGTE, Threshold: 0.35}},
		{"threat<=-0.2", Predicate{Axis: "threat", Operator: OpLTE, Threshold: -0.2}},
		{"arousal > 0", Predicate{Axis: "arousal", Operator: OpGT, Threshold: 0}},
		{"SA < 0.5", Predicate{Axis: "sexual_arousal", Operator: OpLT, Threshold: 0.5}},
		{"engagement == 0.1", Predicate{Axis: "engagement", Operator: OpEQ, Threshold: 0.1}},
	}
	for _, c := range cases {
		got, err := Parse(model, c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseGateErrors(t *testing.T) {
	model := axis.NewModel()

	_, err := Parse(model, "valence 0.3")
	if !errors.Is(err, ErrInvalidPredicate) {
		t.Fatalf("expected ErrInvalidPredicate, got %v", err)
	}

	_, err = Parse(model, "valence >= high")
	if !errors.Is(err, ErrInvalidPredicate) {
		t.Fatalf("expected ErrInvalidPredicate, got %v", err)
	}

	_, err = Parse(model, "mood >= 0.3")
	if !errors.Is(err, axis.ErrUnknownAxis) {
		t.Fatalf("expected ErrUnknownAxis, got %v", err)
	}
}

func TestEvaluateCollectsAllFailures(t *testing.T) {
	preds := []Predicate{
		{Axis: "valence", Operator: OpGTE, Threshold: 0.4},
		{Axis: "threat", Operator: OpLTE, Threshold: 0.2},
		{Axis: "arousal", Operator: OpGTE, Threshold: -0.5},
	}

	d := Evaluate(preds, mapValues{"valence": 0.1, "threat": 0.6, "arousal": 0})
	if d.Passed || d.Action != "block" {
		t.Fatalf("expected block, got %s", d.Action)
	}
	if len(d.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(d.Failures))
	}
	if d.Failures[0].Index != 0 || d.Failures[1].Index != 1 {
		t.Fatalf("failures out of declaration order: %+v", d.Failures)
	}

	d = Evaluate(preds, mapValues{"valence": 0.5, "threat": 0, "arousal": 0})
	if !d.Passed || d.Action != "pass" {
		t.Fatalf("expected pass, got %s: %s", d.Action, d.Reason)
	}
	if !Passes(preds, mapValues{"valence": 0.5, "threat": 0, "arousal": 0}) {
		t.Fatal("Passes disagrees with Evaluate")
	}
}

func TestSatisfiable(t *testing.T) {
	iv := axis.Interval{Lo: -0.2, Hi: 0.3}
	cases := []struct {
		p      Predicate
		sat    bool
		always bool
	}{
		{Predicate{Operator: OpGTE, Threshold: 0.3}, true, false},
		{Predicate{Operator: OpGT, Threshold: 0.3}, false, false},
		{Predicate{Operator: OpLTE, Threshold: -0.2}, true, false},
		{Predicate{Operator: OpLT, Threshold: -0.2}, false, false},
		{Predicate{Operator: OpGTE, Threshold: -0.5}, true, true},
		{Predicate{Operator: OpEQ, Threshold: 0}, true, false},
		{Predicate{Operator: OpNEQ, Threshold: 1}, true, true},
	}
	for _, c := range cases {
		if got := c.p.Satisfiable(iv); got != c.sat {
			t.Errorf("%s satisfiable on %+v: got %v", c.p, iv, got)
		}
		if got := c.p.AlwaysHolds(iv); got != c.always {
			t.Errorf("%s always on %+v: got %v", c.p, iv, got)
		}
	}

	if (Predicate{Operator: OpGTE, Threshold: 0}).Satisfiable(axis.Interval{Lo: 1, Hi: 0}) {
		t.Fatal("empty interval must satisfy nothing")
	}
}

func TestSatisfiableMonotoneInThreshold(t *testing.T) {
	iv := axis.Interval{Lo: 0.4, Hi: 0.7}
	prev := true
	for i := 0; i <= 100; i++ {
		th := -1 + float64(i)*0.02
		sat := Predicate{Axis: "valence", Operator: OpGTE, Threshold: th}.Satisfiable(iv)
		if sat && !prev {
			t.Fatalf("feasibility increased at threshold %.2f", th)
		}
		prev = sat
	}
}

func TestOperatorMirror(t *testing.T) {
	if OpGTE.Mirror() != OpLTE || OpLT.Mirror() != OpGT || OpEQ.Mirror() != OpEQ {
		t.Fatal("mirror mismatch")
	}
}

func TestNarrow(t *testing.T) {
	iv := axis.Interval{Lo: -1, Hi: 1}
	got := Predicate{Operator: OpGTE, Threshold: 0.4}.Narrow(iv)
	if got != (axis.Interval{Lo: 0.4, Hi: 1}) {
		t.Fatalf("narrow >=: %+v", got)
	}
	got = Predicate{Operator: OpLT, Threshold: -0.2}.Narrow(iv)
	if got != (axis.Interval{Lo: -1, Hi: -0.2}) {
		t.Fatalf("narrow <: %+v", got)
	}
	if got = (Predicate{Operator: OpEQ, Threshold: 2}).Narrow(iv); !got.Empty() {
		t.Fatalf("narrow == outside domain should be empty: %+v", got)
	}
	if got = (Predicate{Operator: OpNEQ, Threshold: 0}).Narrow(iv); got != iv {
		t.Fatalf("narrow != changed interval: %+v", got)
	}
}
