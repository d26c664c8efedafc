// Package simulation runs Monte Carlo trials of an expression over sampled
// psychological states.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/sampler"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region engine
// Engine orchestrates sampling, evaluation and aggregation. It keeps no state
// between runs; every Run returns a self-contained Result.
type Engine struct {
	config Config
	model  *axis.Model
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(config Config, model *axis.Model, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: config, model: model, logger: logger}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Run draws SampleCount states and evaluates ev over them.
func (e *Engine) Run(ctx context.Context, ev *eval.Evaluator) (*Result, error) {
	s := sampler.New(e.model, e.config.Seed)
	r := ev.Regime()
	if !e.config.SampleWithinRegime {
		r = nil
	}
	contexts, err := s.Sample(e.config.SampleCount, r)
	if err != nil {
		return nil, fmt.Errorf("sample states: %w", err)
	}
	return e.RunContexts(ctx, ev, contexts)
}

// RunContexts evaluates ev over previously drawn states without resampling.
func (e *Engine) RunContexts(ctx context.Context, ev *eval.Evaluator, contexts []state.PsychState) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	e.logger.Info("simulation started",
		zap.String("run_id", runID),
		zap.String("expression", ev.Expression().ID),
		zap.Int("samples", len(contexts)),
		zap.Int("workers", e.config.Workers))

	outcomes := make([]eval.Outcome, len(contexts))
	tally, err := e.evaluate(ctx, ev, contexts, outcomes)
	if err != nil {
		return nil, fmt.Errorf("evaluate samples: %w", err)
	}

	res := &Result{
		RunID:          runID,
		ExpressionID:   ev.Expression().ID,
		Seed:           e.config.Seed,
		SampleCount:    len(contexts),
		Breakdown:      ev.Breakdown(tally),
		Regime:         ev.Regime(),
		StoredContexts: contexts,
		Outcomes:       outcomes,
	}
	for _, o := range outcomes {
		if o.Passed {
			res.PassCount++
			if o.InRegime {
				res.InRegimePassCount++
			}
		}
	}
	res.InRegimeCount = tally.InRegime()
	res.TriggerRate = ratio(res.PassCount, res.SampleCount)
	res.CI = Wilson(res.PassCount, res.SampleCount, e.config.ConfidenceLevel)
	res.InRegimeTriggerRate = ratio(res.InRegimePassCount, res.InRegimeCount)
	res.InRegimeCI = Wilson(res.InRegimePassCount, res.InRegimeCount, e.config.ConfidenceLevel)

	for _, l := range ev.Leaves() {
		ns := res.Breakdown.Find(l.Node.ID)
		res.ClauseFailures = append(res.ClauseFailures, ClauseFailure{
			ClauseID:             l.Node.ID,
			Description:          l.Node.Description(),
			FailureCount:         ns.FailureCount,
			FailureRate:          ns.FailureRate,
			InRegimeFailureCount: ns.InRegimeFailureCount,
			InRegimeFailureRate:  ns.InRegimeFailureRate,
		})
	}
	res.Duration = time.Since(start)

	e.logger.Info("simulation finished",
		zap.String("run_id", runID),
		zap.Int("passed", res.PassCount),
		zap.Float64("trigger_rate", res.TriggerRate),
		zap.Int("in_regime", res.InRegimeCount),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

// evaluate fills outcomes and returns the merged tally. Samples are split
// into contiguous chunks, one tally per chunk; integer counts make the merge
// order irrelevant.
func (e *Engine) evaluate(ctx context.Context, ev *eval.Evaluator, contexts []state.PsychState, outcomes []eval.Outcome) (*eval.Tally, error) {
	workers := e.config.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(contexts) {
		workers = max(1, len(contexts))
	}
	chunk := (len(contexts) + workers - 1) / workers

	tallies := make([]*eval.Tally, workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(contexts))
		t := ev.NewTally()
		tallies[w] = t
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				outcomes[i] = ev.Evaluate(contexts[i])
				t.Add(outcomes[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := ev.NewTally()
	for _, t := range tallies {
		total.Merge(t)
	}
	return total, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// #endregion engine
