package fit

import (
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
)

// #region config
// Config weights the composite fit score.
type Config struct {
	DefaultThreshold float64
	GateWeight       float64
	AboveWeight      float64
	P90Weight        float64
}

// DefaultConfig returns the score weights used by the leaderboard.
func DefaultConfig() Config {
	return Config{
		DefaultThreshold: 0.5,
		GateWeight:       0.3,
		AboveWeight:      0.4,
		P90Weight:        0.3,
	}
}

// #endregion config

// #region options
// Options select what a leaderboard is computed against. A nil Threshold
// takes the expression's reference threshold, then Config.DefaultThreshold;
// any set value, 0 included, is used as is. A nil Regime is inferred from
// the expression.
type Options struct {
	Threshold *float64
	Regime    *regime.Regime
	Filter    prototype.Filter
}

// #endregion options

// #region leaderboard
// Population names.
const (
	PopulationGlobal   = "global"
	PopulationInRegime = "in-regime"
)

// Entry scores one prototype over the population.
type Entry struct {
	Rank            int            `json:"rank"`
	PrototypeID     string         `json:"prototype_id"`
	Type            prototype.Type `json:"type"`
	GatePassCount   int            `json:"gate_pass_count"`
	GatePassRate    float64        `json:"gate_pass_rate"`
	AboveCount      int            `json:"above_count"`
	PAboveThreshold float64        `json:"p_above_threshold"`
	P10             float64        `json:"p10"`
	P50             float64        `json:"p50"`
	P90             float64        `json:"p90"`
	Score           float64        `json:"score"`
	IsReference     bool           `json:"is_reference"`

	Conflicts []constraint.AxisConflict `json:"conflicts,omitempty"`
}

// Leaderboard ranks prototypes by composite score, best first, ties by id.
type Leaderboard struct {
	ExpressionID   string             `json:"expression_id"`
	Implied        expression.Implied `json:"implied"`
	Threshold      float64            `json:"threshold"`
	Population     string             `json:"population"`
	PopulationSize int                `json:"population_size"`
	Regime         string             `json:"regime"`
	RegimeInferred bool               `json:"regime_inferred"`
	Entries        []Entry            `json:"entries"`
}

// Top returns the best entry, if any.
func (l *Leaderboard) Top() (Entry, bool) {
	if l == nil || len(l.Entries) == 0 {
		return Entry{}, false
	}
	return l.Entries[0], true
}

// #endregion leaderboard
