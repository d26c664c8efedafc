// Package diagnostics wires the analysis stages into one call: simulate,
// rank blockers, check axis-only feasibility, rank prototype fit, derive
// recommendations and render the report.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/blocker"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/fit"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/recommend"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/report"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"go.uber.org/zap"
)

// #region service
// Service runs diagnostics against one prototype registry. The fit cache is
// shared across requests; everything else is per call.
type Service struct {
	config   Config
	registry *prototype.Registry
	fit      *fit.Service
	logger   *zap.Logger
}

// NewService creates the facade. A nil logger discards output.
func NewService(config Config, registry *prototype.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:   config,
		registry: registry,
		fit:      fit.NewService(config.Fit, registry, logger.Named("fit")),
		logger:   logger,
	}
}

// Model returns the axis model the registry validates against.
func (s *Service) Model() *axis.Model {
	return s.registry.Model()
}

// Registry returns the prototype registry.
func (s *Service) Registry() *prototype.Registry {
	return s.registry
}

// Fit exposes the fit service, for cache inspection.
func (s *Service) Fit() *fit.Service {
	return s.fit
}

// #endregion service

// #region analyze
// Analyze runs the full pipeline. Authoring errors (unknown axes or
// prototypes, malformed clauses, invalid regime bounds) are returned; edge
// outcomes such as zero passes or an empty regime population are not errors.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	e, err := expression.Build(req.Definition)
	if err != nil {
		return nil, fmt.Errorf("build expression: %w", err)
	}
	r, err := regime.New(s.Model(), req.Regime)
	if err != nil {
		return nil, fmt.Errorf("build regime: %w", err)
	}
	ev, err := eval.NewEvaluator(s.Model(), s.registry, e, r)
	if err != nil {
		return nil, fmt.Errorf("bind expression %s: %w", e.ID, err)
	}

	simConfig := s.config.Simulation
	if req.Seed != nil {
		simConfig.Seed = *req.Seed
	}
	if req.SampleCount > 0 {
		simConfig.SampleCount = req.SampleCount
	}
	engine := simulation.NewEngine(simConfig, s.Model(), s.logger.Named("simulation"))

	var res *simulation.Result
	if req.Contexts != nil {
		res, err = engine.RunContexts(ctx, ev, req.Contexts)
	} else {
		res, err = engine.Run(ctx, ev)
	}
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", e.ID, err)
	}

	ba := blocker.NewAnalyzer(s.config.Blocker, s.Model(), s.logger.Named("blocker"))
	ranked := ba.RankBlockers(ev, res)
	blockers := ba.Top(ranked)
	axisOnly := s.axisOnly(ev, r)

	lb, err := s.fit.AnalyzeAllPrototypeFit(e, res.StoredContexts, fit.Options{
		Threshold: req.FitThreshold,
		Regime:    r,
	})
	if err != nil {
		return nil, fmt.Errorf("rank prototypes: %w", err)
	}

	facts := recommend.NewFactsBuilder(s.config.Recommend, s.logger.Named("recommend")).
		Build(ev, res, ranked, axisOnly)
	recs := recommend.NewEngine(s.config.Recommend, s.logger.Named("recommend")).Generate(facts)

	out := &Result{
		Expression:      e,
		Simulation:      res,
		Blockers:        blockers,
		AxisOnly:        axisOnly,
		Leaderboard:     lb,
		Facts:           facts,
		Recommendations: recs,
	}
	out.Report = report.NewGenerator(s.config.Report, s.logger.Named("report")).Generate(report.Input{
		Expression:      e,
		Result:          res,
		Blockers:        blockers,
		AxisOnly:        axisOnly,
		Leaderboard:     lb,
		Facts:           facts,
		Recommendations: recs,
	})
	s.logger.Info("diagnostics complete",
		zap.String("expression", e.ID),
		zap.String("run_id", res.RunID),
		zap.Int("blockers", len(blockers)),
		zap.Int("recommendations", len(recs)))
	return out, nil
}

// axisOnly checks every prototype clause against the declared regime's
// bounds, or the global domains when there is none.
func (s *Service) axisOnly(ev *eval.Evaluator, r *regime.Regime) []constraint.AxisOnlyFit {
	ca := constraint.NewAnalyzer(s.Model(), s.logger.Named("constraint"))
	bounds := r.Bounds()
	var out []constraint.AxisOnlyFit
	for _, l := range ev.Leaves() {
		if !l.IsPrototype() {
			continue
		}
		cmp := l.Comparison()
		out = append(out, ca.FitClause(l.Node.ID, l.Prototype, cmp.Operator, cmp.Threshold, bounds))
	}
	return out
}

// #endregion analyze

// #region rank
// RankPrototypes builds only the leaderboard for an expression over existing
// contexts, such as a stored snapshot.
func (s *Service) RankPrototypes(def expression.Definition, regimeDef regime.Definition, contexts []state.PsychState, threshold *float64) (*fit.Leaderboard, error) {
	e, err := expression.Build(def)
	if err != nil {
		return nil, fmt.Errorf("build expression: %w", err)
	}
	r, err := regime.New(s.Model(), regimeDef)
	if err != nil {
		return nil, fmt.Errorf("build regime: %w", err)
	}
	lb, err := s.fit.AnalyzeAllPrototypeFit(e, contexts, fit.Options{Threshold: threshold, Regime: r})
	if err != nil {
		return nil, fmt.Errorf("rank prototypes: %w", err)
	}
	return lb, nil
}

// #endregion rank
