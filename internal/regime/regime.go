// Package regime defines mood regimes: per-axis bounds, in normalized units,
// that select the population of interest for in-regime statistics.
package regime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"gopkg.in/yaml.v3"
)

// #region types
// ErrInvalidBound is returned for bounds whose min exceeds max or that lie
// outside the axis domain entirely.
var ErrInvalidBound = errors.New("invalid regime bound")

// Bound restricts one axis. Nil ends are open.
type Bound struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Definition is the external regime format: { axis: {min?, max?} }.
type Definition map[string]Bound

// Regime is a validated definition bound to canonical axis names.
type Regime struct {
	bounds   map[string]axis.Interval
	declared map[string]Bound
	order    []string
	Inferred bool
}

// #endregion types

// #region build
// Parse reads a definition from JSON or YAML bytes.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err == nil {
		return def, nil
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse regime: %w", err)
	}
	return def, nil
}

// New validates a definition against the axis model. A nil or empty
// definition yields a nil Regime, meaning the global population only.
func New(model *axis.Model, def Definition) (*Regime, error) {
	if len(def) == 0 {
		return nil, nil
	}
	r := &Regime{
		bounds:   make(map[string]axis.Interval, len(def)),
		declared: make(map[string]Bound, len(def)),
	}
	for name, b := range def {
		a, err := model.LookupIn(name, "mood regime")
		if err != nil {
			return nil, err
		}
		iv := a.NormInterval()
		if b.Min != nil {
			iv.Lo = max(iv.Lo, *b.Min)
		}
		if b.Max != nil {
			iv.Hi = min(iv.Hi, *b.Max)
		}
		if iv.Empty() {
			return nil, fmt.Errorf("%w: %s [%v, %v]", ErrInvalidBound, a.Name, iv.Lo, iv.Hi)
		}
		r.bounds[a.Name] = iv
		r.declared[a.Name] = b
		r.order = append(r.order, a.Name)
	}
	sort.Strings(r.order)
	return r, nil
}

// #endregion build

// #region queries
// Contains reports whether a state satisfies every bound. A nil regime
// contains everything.
func (r *Regime) Contains(v gate.Values) bool {
	if r == nil {
		return true
	}
	for _, name := range r.order {
		iv := r.bounds[name]
		x := v.Norm(name)
		if x < iv.Lo || x > iv.Hi {
			return false
		}
	}
	return true
}

// Interval returns the effective normalized interval for an axis and whether
// the regime constrains it.
func (r *Regime) Interval(name string) (axis.Interval, bool) {
	if r == nil {
		return axis.Interval{}, false
	}
	iv, ok := r.bounds[name]
	return iv, ok
}

// Bounds returns a copy of all constrained intervals.
func (r *Regime) Bounds() map[string]axis.Interval {
	out := make(map[string]axis.Interval)
	if r == nil {
		return out
	}
	for k, v := range r.bounds {
		out[k] = v
	}
	return out
}

// Declared returns the bound as written for an axis.
func (r *Regime) Declared(name string) (Bound, bool) {
	if r == nil {
		return Bound{}, false
	}
	b, ok := r.declared[name]
	return b, ok
}

// Axes lists constrained axes, sorted.
func (r *Regime) Axes() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Definition converts back to the external format with effective bounds.
func (r *Regime) Definition() Definition {
	if r == nil {
		return nil
	}
	def := make(Definition, len(r.order))
	for _, name := range r.order {
		iv := r.bounds[name]
		lo, hi := iv.Lo, iv.Hi
		def[name] = Bound{Min: &lo, Max: &hi}
	}
	return def
}

// String renders bounds like "valence in [0.20, 1.00]".
func (r *Regime) String() string {
	if r == nil {
		return "global"
	}
	s := ""
	for i, name := range r.order {
		if i > 0 {
			s += ", "
		}
		iv := r.bounds[name]
		s += fmt.Sprintf("%s in [%.2f, %.2f]", name, iv.Lo, iv.Hi)
	}
	return s
}

// #endregion queries

// #region helpers
// Ptr is a helper for building bounds in code.
func Ptr(v float64) *float64 { return &v }

// #endregion helpers
