// Package recommend turns diagnostic statistics into evidence-backed
// authoring recommendations.
package recommend

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"go.uber.org/zap"
)

// #region engine
// Engine generates recommendations from facts. It is stateless.
type Engine struct {
	config Config
	logger *zap.Logger
}

// NewEngine creates a recommendation engine. A nil logger discards output.
func NewEngine(config Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: config, logger: logger}
}

// Generate emits recommendations ranked by impact. Any recommendation whose
// evidence lacks a population count is dropped and recorded as a failed
// invariant on f.
func (e *Engine) Generate(f *Facts) []Recommendation {
	var out []Recommendation
	emit := func(r Recommendation) {
		for _, ev := range r.Evidence {
			if ev.Denominator <= 0 {
				f.Invariants = append(f.Invariants, Invariant{
					Name:    "evidence-available:" + r.ID,
					OK:      false,
					Message: fmt.Sprintf("dropped %s: %q has no population", r.Type, ev.Label),
				})
				e.logger.Warn("recommendation dropped",
					zap.String("id", r.ID),
					zap.String("evidence", ev.Label))
				return
			}
		}
		out = append(out, r)
	}

	for _, c := range f.Clauses {
		if c.Ceiling != nil && !c.Ceiling.Achievable {
			emit(e.ceiling(f, c))
			continue
		}
		switch c.ChokeType {
		case ChokeGate:
			emit(e.gateChoke(f, c))
		case ChokeThreshold:
			emit(e.thresholdChoke(f, c))
		case ChokeMixed:
			emit(e.mixedChoke(f, c))
		}
		suppressed := c.ChokeType == ChokeGate && c.GatePassCount > 0 &&
			c.PassGivenGate >= e.config.PassGivenGateSuppress
		if !suppressed && (c.FailureCount > 0 || c.PopulationSize == 0) {
			for i := range c.Conflicts {
				emit(e.conflict(f, c, i))
			}
		}
		if c.Decisive {
			emit(e.decisive(f, c))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ImpactPP != out[j].ImpactPP {
			return out[i].ImpactPP > out[j].ImpactPP
		}
		return severityRank(out[i].Severity) < severityRank(out[j].Severity)
	})
	if e.config.MaxRecommendations > 0 && len(out) > e.config.MaxRecommendations {
		out = out[:e.config.MaxRecommendations]
	}
	e.logger.Debug("recommendations generated",
		zap.String("expression", f.ExpressionID),
		zap.Int("count", len(out)))
	return out
}

// #endregion engine

// #region builders
func (e *Engine) gateChoke(f *Facts, c ClauseFacts) Recommendation {
	r := e.base(f, c, TypeGateChoke, fmt.Sprintf("Gate of %s blocks %s", c.PrototypeID, c.Description))
	r.Evidence = append(e.gateEvidence(f, c), e.impactEvidence(f, c))
	r.Actions = e.gateActions(c)
	r.PredictedEffect = fmt.Sprintf("Up to %s if the clause no longer blocks", pp(c.ImpactPP))
	return r
}

func (e *Engine) thresholdChoke(f *Facts, c ClauseFacts) Recommendation {
	r := e.base(f, c, TypeThresholdTooHigh, fmt.Sprintf("Threshold of %s rarely met", c.Description))
	r.Evidence = append(e.thresholdEvidence(f, c), e.impactEvidence(f, c))
	r.Actions, r.PredictedEffect = e.thresholdActions(f, c)
	return r
}

func (e *Engine) mixedChoke(f *Facts, c ClauseFacts) Recommendation {
	r := e.base(f, c, TypeMixedChoke, fmt.Sprintf("Gate and threshold both block %s", c.Description))
	r.Evidence = append(e.gateEvidence(f, c), e.thresholdEvidence(f, c)...)
	r.Evidence = append(r.Evidence, e.impactEvidence(f, c))
	actions, effect := e.thresholdActions(f, c)
	r.Actions = append(e.gateActions(c), actions...)
	r.PredictedEffect = effect
	return r
}

func (e *Engine) conflict(f *Facts, c ClauseFacts, i int) Recommendation {
	cf := c.Conflicts[i]
	r := e.base(f, c, TypeAxisSignConflict,
		fmt.Sprintf("Regime bound on %s works against %s", cf.Axis, c.PrototypeID))
	r.ID = fmt.Sprintf("%s:%s:%s", TypeAxisSignConflict, c.ClauseID, cf.Axis)
	r.Evidence = []Evidence{e.popEvidence(f, "Clause fail rate", c.FailureCount, c.PopulationSize)}
	switch cf.ConflictType {
	case constraint.ConflictPositiveWeightLowMax:
		r.Actions = []string{fmt.Sprintf(
			"%s weighs %s at %+.2f but the regime caps it at %.2f; raise the regime max or pick a prototype that does not rely on high %s",
			c.PrototypeID, cf.Axis, cf.Weight, cf.RegimeMax, cf.Axis)}
	default:
		r.Actions = []string{fmt.Sprintf(
			"%s weighs %s at %+.2f but the regime floors it at %.2f; lower the regime min or pick a prototype that does not rely on low %s",
			c.PrototypeID, cf.Axis, cf.Weight, cf.RegimeMin, cf.Axis)}
	}
	r.PredictedEffect = "Removes a structural cap on the prototype's intensity inside the regime"
	return r
}

func (e *Engine) ceiling(f *Facts, c ClauseFacts) Recommendation {
	r := e.base(f, c, TypeCeilingUnreachable, fmt.Sprintf("%s can never pass", c.Description))
	r.Severity = LevelHigh
	r.Confidence = LevelHigh
	r.Evidence = []Evidence{
		e.globalEvidence(f, "Clause pass rate", f.SampleCount-c.GlobalFailureCount, f.SampleCount),
	}
	r.Actions = []string{fmt.Sprintf(
		"Reachable range is [%.2f, %.2f] against threshold %s; move the threshold inside it or change the prototype weights",
		c.Ceiling.MinAchievable, c.Ceiling.MaxAchievable, num(c.Threshold))}
	r.PredictedEffect = "The expression cannot fire until this changes"
	return r
}

func (e *Engine) decisive(f *Facts, c ClauseFacts) Recommendation {
	r := e.base(f, c, TypeDecisiveBlocker, fmt.Sprintf("%s is the last blocker", c.Description))
	r.ID = TypeDecisiveBlocker + ":" + c.ClauseID
	r.Evidence = []Evidence{
		e.impactEvidence(f, c),
		e.globalEvidence(f, "Last-mile fail", c.SoleBlockerCount, c.OthersPassCount),
	}
	r.Actions = []string{"Every other clause already holds in these samples; tune this clause first"}
	r.PredictedEffect = fmt.Sprintf("%s if the clause always passed", pp(c.ImpactPP))
	return r
}

func (e *Engine) base(f *Facts, c ClauseFacts, typ, title string) Recommendation {
	return Recommendation{
		ID:               typ + ":" + c.ClauseID,
		Title:            title,
		Type:             typ,
		Severity:         severity(c.ImpactPP),
		Confidence:       confidence(c.PopulationSize),
		ChokeType:        c.ChokeType,
		ImpactPP:         c.ImpactPP,
		RelatedClauseIDs: []string{c.ClauseID},
	}
}

func (e *Engine) gateEvidence(f *Facts, c ClauseFacts) []Evidence {
	out := []Evidence{e.popEvidence(f, "Gate fail rate", c.GateFailCount, c.PopulationSize)}
	for _, pf := range c.GateFailures {
		out = append(out, e.popEvidence(f, "Gate fail rate ("+pf.Predicate.String()+")", pf.Count, c.PopulationSize))
	}
	return out
}

func (e *Engine) thresholdEvidence(f *Facts, c ClauseFacts) []Evidence {
	var out []Evidence
	if c.PrototypeID != "" {
		out = append(out, e.popEvidence(f, "Pass | gate", c.PassGivenGateCount, c.GatePassCount))
	}
	out = append(out, e.popEvidence(f, "Clause threshold fail", c.FailureCount-c.GateFailedFailures, c.PopulationSize))
	if s := c.Suggestion; s != nil {
		out = append(out, e.popEvidence(f, fmt.Sprintf("Predicted pass at %.2f", s.Threshold), s.PredictedPass, s.PopulationSize))
	}
	return out
}

func (e *Engine) gateActions(c ClauseFacts) []string {
	if len(c.GateFailures) == 0 {
		return []string{fmt.Sprintf("Relax the gates of %s", c.PrototypeID)}
	}
	top := c.GateFailures[0].Predicate
	return []string{fmt.Sprintf("Relax gate %q of %s, the most frequent gate failure", top.String(), c.PrototypeID)}
}

func (e *Engine) thresholdActions(f *Facts, c ClauseFacts) ([]string, string) {
	s := c.Suggestion
	if s == nil {
		return []string{fmt.Sprintf("Loosen the threshold %s of %s", num(c.Threshold), c.Description)},
			fmt.Sprintf("Up to %s if the clause no longer blocks", pp(c.ImpactPP))
	}
	return []string{fmt.Sprintf("Change the threshold from %s to %.2f", num(c.Threshold), s.Threshold)},
		fmt.Sprintf("Clause would pass in %d/%d %s samples; up to %s overall",
			s.PredictedPass, s.PopulationSize, f.Population, pp(c.ImpactPP))
}

func (e *Engine) popEvidence(f *Facts, label string, n, d int) Evidence {
	return Evidence{
		Label: label, Numerator: n, Denominator: d, Value: ratio(n, d),
		Population: f.Population, PopulationSize: f.PopulationSize,
	}
}

// impactEvidence backs every ImpactPP figure: sole-blocker samples over the
// full sample.
func (e *Engine) impactEvidence(f *Facts, c ClauseFacts) Evidence {
	return e.globalEvidence(f, "Sole blocker", c.SoleBlockerCount, f.SampleCount)
}

func (e *Engine) globalEvidence(f *Facts, label string, n, d int) Evidence {
	return Evidence{
		Label: label, Numerator: n, Denominator: d, Value: ratio(n, d),
		Population: PopulationGlobal, PopulationSize: f.SampleCount,
	}
}

// #endregion builders

// #region helpers
func severity(impactPP float64) string {
	switch {
	case impactPP >= 10:
		return LevelHigh
	case impactPP >= 2:
		return LevelMedium
	}
	return LevelLow
}

func severityRank(s string) int {
	switch s {
	case LevelHigh:
		return 0
	case LevelMedium:
		return 1
	}
	return 2
}

func confidence(population int) string {
	switch {
	case population >= 1000:
		return LevelHigh
	case population >= 100:
		return LevelMedium
	}
	return LevelLow
}

func pp(v float64) string {
	return fmt.Sprintf("+%.2f pp", v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// #endregion helpers
