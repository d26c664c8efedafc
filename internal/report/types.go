package report

import (
	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/fit"
	"github.com/danielpatrickdp/exprdiag/internal/recommend"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
)

// #region sections
// Section headings in report order. Downstream tooling greps for these.
const (
	SectionSummary         = "Summary"
	SectionPrototypeFit    = "Prototype Fit"
	SectionBlockers        = "Blockers"
	SectionAxisConstraints = "Axis Constraints"
	SectionRecommendations = "Recommendations"
)

// Sections lists the headings in the order they are rendered.
var Sections = []string{
	SectionSummary,
	SectionPrototypeFit,
	SectionBlockers,
	SectionAxisConstraints,
	SectionRecommendations,
}

// Scope badges.
const (
	BadgeAxisOnly = "[AXIS-ONLY FIT]"
	BadgeInRegime = "[IN-REGIME]"
)

// #endregion sections

// #region input
// Input is everything one report is assembled from. Any part may be nil or
// empty; its section then says so.
type Input struct {
	Expression      *expression.Expression
	Result          *simulation.Result
	Blockers        []blocker.Blocker
	AxisOnly        []constraint.AxisOnlyFit
	Leaderboard     *fit.Leaderboard
	Facts           *recommend.Facts
	Recommendations []recommend.Recommendation
}

// #endregion input
