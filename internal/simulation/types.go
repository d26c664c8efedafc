package simulation

import (
	"time"

	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/state"
)

// #region config
// Config controls one Monte Carlo run.
type Config struct {
	SampleCount        int     // states drawn per run
	Seed               uint64  // sampler seed; equal seeds give equal runs
	Workers            int     // evaluation goroutines; <= 1 evaluates inline
	ConfidenceLevel    float64 // two-sided Wilson interval level
	SampleWithinRegime bool    // draw regime-bounded axes from their bounds only
}

// DefaultConfig returns the settings used by the CLI when none are given.
func DefaultConfig() Config {
	return Config{
		SampleCount:     10000,
		Seed:            42,
		Workers:         4,
		ConfidenceLevel: 0.95,
	}
}

// #endregion config

// #region interval
// Interval is a confidence interval for a rate.
type Interval struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Level float64 `json:"level"`
}

// Contains reports whether p lies within the interval.
func (i Interval) Contains(p float64) bool {
	return p >= i.Low && p <= i.High
}

// #endregion interval

// #region result
// ClauseFailure is the aggregate failure accounting of one leaf clause.
type ClauseFailure struct {
	ClauseID             string  `json:"clause_id"`
	Description          string  `json:"description"`
	FailureCount         int     `json:"failure_count"`
	FailureRate          float64 `json:"failure_rate"`
	InRegimeFailureCount int     `json:"in_regime_failure_count"`
	InRegimeFailureRate  float64 `json:"in_regime_failure_rate"`
}

// Result is a self-contained run. It holds no references into the engine.
// StoredContexts and Outcomes are aligned by sample index.
type Result struct {
	RunID        string        `json:"run_id"`
	ExpressionID string        `json:"expression_id"`
	Seed         uint64        `json:"seed"`
	Duration     time.Duration `json:"duration"`

	SampleCount int      `json:"sample_count"`
	PassCount   int      `json:"pass_count"`
	TriggerRate float64  `json:"trigger_rate"`
	CI          Interval `json:"confidence_interval"`

	InRegimeCount       int      `json:"in_regime_count"`
	InRegimePassCount   int      `json:"in_regime_pass_count"`
	InRegimeTriggerRate float64  `json:"in_regime_trigger_rate"`
	InRegimeCI          Interval `json:"in_regime_confidence_interval"`

	ClauseFailures []ClauseFailure    `json:"clause_failures"`
	Breakdown      *eval.NodeStats    `json:"breakdown"`
	Regime         *regime.Regime     `json:"-"`
	StoredContexts []state.PsychState `json:"-"`
	Outcomes       []eval.Outcome     `json:"-"`
}

// #endregion result
