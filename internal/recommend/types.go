package recommend

import (
	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region config
// Config holds classification cut-offs and output limits.
type Config struct {
	GateChokeShare        float64 // gate share of clause failures at or above which the choke is "gate"
	ThresholdChokeShare   float64 // share at or below which it is "threshold"
	PassGivenGateSuppress float64 // pass|gate at which sign conflicts on a gate choke are suppressed
	TargetClausePassRate  float64 // pass rate a suggested threshold aims for
	MaxRecommendations    int     // 0 keeps all
}

// DefaultConfig returns the classification defaults.
func DefaultConfig() Config {
	return Config{
		GateChokeShare:        0.8,
		ThresholdChokeShare:   0.2,
		PassGivenGateSuppress: 0.95,
		TargetClausePassRate:  0.5,
	}
}

// #endregion config

// #region choke
// Choke types.
const (
	ChokeGate      = "gate"
	ChokeThreshold = "threshold"
	ChokeMixed     = "mixed"
	ChokeNone      = "none"
)

// #endregion choke

// #region facts
// PredicateFailure counts how often one gate predicate failed.
type PredicateFailure struct {
	Predicate gate.Predicate `json:"predicate"`
	Count     int            `json:"count"`
}

// ClauseFacts is the evidence gathered for one leaf clause over the
// analysis population.
type ClauseFacts struct {
	ClauseID    string        `json:"clause_id"`
	Description string        `json:"description"`
	PrototypeID string        `json:"prototype_id,omitempty"`
	Operator    gate.Operator `json:"operator"`
	Threshold   float64       `json:"threshold"`

	PopulationSize int     `json:"population_size"`
	FailureCount   int     `json:"failure_count"`
	FailureRate    float64 `json:"failure_rate"`

	GatePassCount      int                `json:"gate_pass_count"`
	GateFailCount      int                `json:"gate_fail_count"`
	GateFailRate       float64            `json:"gate_fail_rate"`
	PassGivenGateCount int                `json:"pass_given_gate_count"`
	PassGivenGate      float64            `json:"pass_given_gate"`
	GateFailedFailures int                `json:"gate_failed_failures"` // clause failures with the gate closed
	GateShare          float64            `json:"gate_share"`
	GateFailures       []PredicateFailure `json:"gate_failures,omitempty"`
	ChokeType          string             `json:"choke_type"`

	// Global-population counterfactual: pass-rate gain if the clause were
	// removed, in percentage points of the full sample.
	SoleBlockerCount int     `json:"sole_blocker_count"`
	OthersPassCount  int     `json:"others_pass_count"`
	ImpactPP         float64 `json:"impact_pp"`
	Decisive         bool    `json:"decisive"`

	// NearMiss and Ceiling are nil when the clause was not among the
	// analysed blockers.
	GlobalFailureCount int                       `json:"global_failure_count"`
	NearMiss           *blocker.NearMissAnalysis `json:"near_miss,omitempty"`
	Ceiling            *blocker.CeilingAnalysis  `json:"ceiling,omitempty"`
	Conflicts          []constraint.AxisConflict `json:"conflicts,omitempty"`

	Suggestion *ThresholdSuggestion `json:"suggestion,omitempty"`
}

// ThresholdSuggestion proposes a new threshold with its predicted clause
// pass count over the same population.
type ThresholdSuggestion struct {
	Threshold      float64 `json:"threshold"`
	PredictedPass  int     `json:"predicted_pass"`
	PopulationSize int     `json:"population_size"`
}

// Invariant is one sanity check over the facts.
type Invariant struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Facts is the flat evidence table recommendations are generated from.
type Facts struct {
	ExpressionID string `json:"expression_id"`
	SampleCount  int    `json:"sample_count"`
	PassCount    int    `json:"pass_count"`

	Population        string `json:"population"`
	PopulationSize    int    `json:"population_size"`
	PopulationPassing int    `json:"population_passing"`

	Clauses    []ClauseFacts `json:"clauses"`
	Invariants []Invariant   `json:"invariants"`
}

// Clause returns the facts for a clause id.
func (f *Facts) Clause(id string) (ClauseFacts, bool) {
	for _, c := range f.Clauses {
		if c.ClauseID == id {
			return c, true
		}
	}
	return ClauseFacts{}, false
}

// #endregion facts

// #region recommendation
// Recommendation types.
const (
	TypeGateChoke          = "gate_choke"
	TypeThresholdTooHigh   = "threshold_too_high"
	TypeMixedChoke         = "mixed_choke"
	TypeAxisSignConflict   = "axis_sign_conflict"
	TypeCeilingUnreachable = "ceiling_unreachable"
	TypeDecisiveBlocker    = "decisive_blocker"
)

// Severity and confidence levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Evidence backs one numeric claim with its counts.
type Evidence struct {
	Label          string  `json:"label"`
	Numerator      int     `json:"numerator"`
	Denominator    int     `json:"denominator"`
	Value          float64 `json:"value"`
	Population     string  `json:"population"`
	PopulationSize int     `json:"population_size"`
}

// Recommendation is one authoring change with the evidence behind it.
type Recommendation struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	Severity         string     `json:"severity"`
	Confidence       string     `json:"confidence"`
	ChokeType        string     `json:"choke_type,omitempty"`
	Evidence         []Evidence `json:"evidence"`
	Actions          []string   `json:"actions"`
	PredictedEffect  string     `json:"predicted_effect"`
	ImpactPP         float64    `json:"impact_pp"`
	RelatedClauseIDs []string   `json:"related_clause_ids"`
}

// #endregion recommendation
