package blocker

import (
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region config
// Config tunes blocker analysis.
type Config struct {
	NearMissEpsilon float64 // fraction of the compared value's domain width
	TunableShare    float64 // near-miss share of failures that marks a clause tunable
	DecisiveShare   float64 // share of failing samples a sole blocker must explain
	MaxBlockers     int     // rows kept by Top; 0 keeps every leaf
}

// DefaultConfig returns the analysis defaults.
func DefaultConfig() Config {
	return Config{
		NearMissEpsilon: 0.05,
		TunableShare:    0.25,
		DecisiveShare:   0.5,
	}
}

// #endregion config

// #region analyses
// Distribution shapes.
const (
	ShapeNormal      = "normal"
	ShapeLeftSkewed  = "left_skewed"
	ShapeRightSkewed = "right_skewed"
)

// PercentileAnalysis places the clause's compared-value distribution relative
// to its threshold.
type PercentileAnalysis struct {
	P10  float64 `json:"p10"`
	P25  float64 `json:"p25"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
	P90  float64 `json:"p90"`
	Mean float64 `json:"mean"`
	Skew float64 `json:"skew"` // Pearson median skewness

	// Shape is normal when |Skew| < 0.3.
	Shape string `json:"shape"`

	// ThresholdPercentile is the share of samples whose value lies below the
	// threshold.
	ThresholdPercentile float64 `json:"threshold_percentile"`
}

// NearMissAnalysis counts failures that landed within epsilon of the
// threshold.
type NearMissAnalysis struct {
	Epsilon       float64 `json:"epsilon"`
	FailureCount  int     `json:"failure_count"`
	NearMissCount int     `json:"near_miss_count"`
	NearMissRate  float64 `json:"near_miss_rate"`
	Tunable       bool    `json:"tunable"`
}

// CeilingAnalysis is the exact reachable range of the compared value over
// the global domain, independent of sampling.
type CeilingAnalysis struct {
	MinAchievable   float64 `json:"min_achievable"`
	MaxAchievable   float64 `json:"max_achievable"`
	Achievable      bool    `json:"achievable"`
	Gap             float64 `json:"gap"` // distance from the reachable range to the threshold
	GateSatisfiable bool    `json:"gate_satisfiable"`
}

// LastMileAnalysis looks at samples where forcing this clause to pass would
// make the whole expression pass.
type LastMileAnalysis struct {
	OthersPassCount  int     `json:"others_pass_count"`  // expression passes if this clause passes
	SoleBlockerCount int     `json:"sole_blocker_count"` // ...and the expression currently fails
	LastMileFailRate float64 `json:"last_mile_fail_rate"`

	// ImpactPP is the pass-rate gain over the full sample, in percentage
	// points, if the clause always passed.
	ImpactPP float64 `json:"impact_pp"`
	Decisive bool    `json:"decisive"`
}

// #endregion analyses

// #region blocker
// Blocker is one leaf clause ranked by how much it blocks triggering.
type Blocker struct {
	Rank        int           `json:"rank"`
	ClauseID    string        `json:"clause_id"`
	Description string        `json:"description"`
	VarPath     string        `json:"var_path"`
	Operator    gate.Operator `json:"operator"`
	Threshold   float64       `json:"threshold"`
	PrototypeID string        `json:"prototype_id,omitempty"`

	FailureCount         int     `json:"failure_count"`
	FailureRate          float64 `json:"failure_rate"`
	InRegimeFailureCount int     `json:"in_regime_failure_count"`
	InRegimeFailureRate  float64 `json:"in_regime_failure_rate"`

	Percentiles PercentileAnalysis `json:"percentile_analysis"`
	NearMiss    NearMissAnalysis   `json:"near_miss_analysis"`
	Ceiling     CeilingAnalysis    `json:"ceiling_analysis"`
	LastMile    LastMileAnalysis   `json:"last_mile_analysis"`

	Breakdown *eval.NodeStats `json:"hierarchical_breakdown"`
}

// #endregion blocker
