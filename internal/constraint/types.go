package constraint

import (
	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region conflict
// Conflict types between a weight's sign and a regime bound.
const (
	ConflictPositiveWeightLowMax  = "positive_weight_low_max"
	ConflictNegativeWeightHighMin = "negative_weight_high_min"
)

// AxisConflict flags a regime bound that works against a weight: the regime
// caps a positively weighted axis below its neutral point, or floors a
// negatively weighted axis above it.
type AxisConflict struct {
	Axis         string  `json:"axis"`
	Weight       float64 `json:"weight"`
	RegimeMin    float64 `json:"regime_min"`
	RegimeMax    float64 `json:"regime_max"`
	ConflictType string  `json:"conflict_type"`
}

// #endregion conflict

// #region analysis
// AxisRange is one weighted axis's interval and its contribution range to
// the weighted sum (before division).
type AxisRange struct {
	Axis            string        `json:"axis"`
	Weight          float64       `json:"weight"`
	Interval        axis.Interval `json:"interval"`
	ContributionMin float64       `json:"contribution_min"`
	ContributionMax float64       `json:"contribution_max"`
}

// GateStatus is the exact satisfiability of one gate predicate under the
// bounds.
type GateStatus struct {
	Predicate   gate.Predicate `json:"predicate"`
	Interval    axis.Interval  `json:"interval"`
	Satisfiable bool           `json:"satisfiable"`
	AlwaysHolds bool           `json:"always_holds"`
}

// Analysis is the sampling-free range analysis of one prototype under a box
// of axis bounds. Min and Max ignore gates; GatedMin and GatedMax restrict the
// box to where every gate holds and are meaningful only when
// GatesSatisfiable.
type Analysis struct {
	PrototypeID      string         `json:"prototype_id"`
	Min              float64        `json:"min"`
	Max              float64        `json:"max"`
	GatedMin         float64        `json:"gated_min"`
	GatedMax         float64        `json:"gated_max"`
	GatesSatisfiable bool           `json:"gates_satisfiable"`
	GatesAlwaysHold  bool           `json:"gates_always_hold"`
	Gates            []GateStatus   `json:"gates"`
	Axes             []AxisRange    `json:"axes"`
	Conflicts        []AxisConflict `json:"conflicts,omitempty"`
}

// #endregion analysis

// #region axis-only-fit
// AxisOnlyFit answers whether a prototype clause can pass at all given only
// the regime's axis bounds. It is never a rate.
type AxisOnlyFit struct {
	ClauseID   string        `json:"clause_id"`
	Operator   gate.Operator `json:"operator"`
	Threshold  float64       `json:"threshold"`
	Analysis   Analysis      `json:"analysis"`
	Achievable bool          `json:"achievable"`
	// Values the clause's gated intensity can take under the bounds.
	Reachable axis.Interval `json:"reachable"`
	// Whether 0 is also reachable because some gate can fail.
	ZeroReachable bool `json:"zero_reachable"`
}

// #endregion axis-only-fit
