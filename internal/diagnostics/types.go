package diagnostics

import (
	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/fit"
	"github.com/danielpatrickdp/exprdiag/internal/recommend"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/report"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
	"github.com/danielpatrickdp/exprdiag/internal/state"
)

// #region config
// Config gathers the per-stage configs.
type Config struct {
	Simulation simulation.Config
	Blocker    blocker.Config
	Fit        fit.Config
	Recommend  recommend.Config
	Report     report.Config
}

// DefaultConfig returns every stage's defaults.
func DefaultConfig() Config {
	return Config{
		Simulation: simulation.DefaultConfig(),
		Blocker:    blocker.DefaultConfig(),
		Fit:        fit.DefaultConfig(),
		Recommend:  recommend.DefaultConfig(),
		Report:     report.DefaultConfig(),
	}
}

// #endregion config

// #region request
// Request is one diagnostics run.
type Request struct {
	Definition expression.Definition `json:"expression"`
	Regime     regime.Definition     `json:"regime,omitempty"`

	// Optional overrides of the simulation config. Nil Seed and zero
	// SampleCount keep the configured values.
	Seed        *uint64 `json:"seed,omitempty"`
	SampleCount int     `json:"sample_count,omitempty"`

	// FitThreshold overrides the leaderboard threshold when set.
	FitThreshold *float64 `json:"fit_threshold,omitempty"`

	// Contexts, when set, are evaluated instead of drawing new samples.
	Contexts []state.PsychState `json:"-"`
}

// #endregion request

// #region result
// Result holds every structured output plus the rendered report.
type Result struct {
	Expression      *expression.Expression     `json:"-"`
	Simulation      *simulation.Result         `json:"simulation"`
	Blockers        []blocker.Blocker          `json:"blockers"`
	AxisOnly        []constraint.AxisOnlyFit   `json:"axis_only_fit"`
	Leaderboard     *fit.Leaderboard           `json:"leaderboard"`
	Facts           *recommend.Facts           `json:"facts"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Report          string                     `json:"report"`
}

// #endregion result
