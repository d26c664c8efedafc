package simulation

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func compile(t *testing.T, src string, r *regime.Regime) *eval.Evaluator {
	t.Helper()
	model := axis.NewModel()
	reg, err := prototype.Default(model)
	require.NoError(t, err)
	def, err := expression.ParseDefinition([]byte(src), ".json")
	require.NoError(t, err)
	e, err := expression.Build(def)
	require.NoError(t, err)
	ev, err := eval.NewEvaluator(model, reg, e, r)
	require.NoError(t, err)
	return ev
}

const valenceHalf = `{"id":"v","prerequisites":[{"logic": {">=": [{"var": "moodAxes.valence"}, 0]}}]}`

func TestRunEstimatesTriggerRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 4000
	res, err := NewEngine(cfg, axis.NewModel(), nil).Run(context.Background(), compile(t, valenceHalf, nil))
	require.NoError(t, err)

	assert.Equal(t, 4000, res.SampleCount)
	assert.InDelta(t, 0.5, res.TriggerRate, 0.04)
	assert.True(t, res.CI.Contains(res.TriggerRate))
	assert.True(t, res.CI.Contains(0.5))
	assert.Len(t, res.StoredContexts, 4000)
	assert.Len(t, res.Outcomes, 4000)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.ClauseFailures, 1)
	assert.Equal(t, res.SampleCount-res.PassCount, res.ClauseFailures[0].FailureCount)
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	ev := compile(t, `{"id":"x","prerequisites":[{"logic": {"or": [
		{">=": [{"var": "emotions.joy"}, 0.4]},
		{"<=": [{"var": "moodAxes.threat"}, -30]}
	]}}]}`, nil)

	var results []*Result
	for _, workers := range []int{1, 3, 8} {
		cfg := DefaultConfig()
		cfg.SampleCount = 1500
		cfg.Workers = workers
		res, err := NewEngine(cfg, axis.NewModel(), nil).Run(context.Background(), ev)
		require.NoError(t, err)
		results = append(results, res)
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0].PassCount, r.PassCount)
		assert.Equal(t, results[0].Breakdown, r.Breakdown)
	}
}

func TestRunInRegimePopulation(t *testing.T) {
	model := axis.NewModel()
	r, err := regime.New(model, regime.Definition{"valence": {Min: regime.Ptr(0.5)}})
	require.NoError(t, err)
	ev := compile(t, valenceHalf, r)

	cfg := DefaultConfig()
	cfg.SampleCount = 2000
	res, err := NewEngine(cfg, model, nil).Run(context.Background(), ev)
	require.NoError(t, err)
	assert.InDelta(t, 500, res.InRegimeCount, 100)
	assert.Equal(t, res.InRegimeCount, res.InRegimePassCount)
	assert.Equal(t, 1.0, res.InRegimeTriggerRate)

	cfg.SampleWithinRegime = true
	res, err = NewEngine(cfg, model, nil).Run(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, res.SampleCount, res.InRegimeCount)
	assert.Equal(t, 1.0, res.TriggerRate)
}

func TestRunZeroSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 0
	res, err := NewEngine(cfg, axis.NewModel(), nil).Run(context.Background(), compile(t, valenceHalf, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.TriggerRate)
	assert.Equal(t, Interval{Low: 0, High: 1, Level: cfg.ConfidenceLevel}, res.CI)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(DefaultConfig(), axis.NewModel(), nil).Run(ctx, compile(t, valenceHalf, nil))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWilsonWidensAsSampleShrinks(t *testing.T) {
	prev := 0.0
	for _, n := range []int{10000, 1000, 100, 10} {
		ci := Wilson(n/4, n, 0.95)
		width := ci.High - ci.Low
		if width <= prev {
			t.Fatalf("n=%d width %v not wider than %v", n, width, prev)
		}
		prev = width
	}
}

func TestWilsonExtremes(t *testing.T) {
	ci := Wilson(0, 50, 0.95)
	assert.Equal(t, 0.0, ci.Low)
	assert.Greater(t, ci.High, 0.0)

	ci = Wilson(50, 50, 0.95)
	assert.Equal(t, 1.0, ci.High)
	assert.Less(t, ci.Low, 1.0)

	// skewed toward 0.5 near the edge
	mid := Wilson(500, 1000, 0.95)
	edge := Wilson(2, 1000, 0.95)
	assert.Less(t, edge.High-edge.Low, mid.High-mid.Low)
	assert.Greater(t, edge.High-0.002, 0.002-edge.Low)
}

func TestZScore(t *testing.T) {
	assert.InDelta(t, 1.959964, ZScore(0.95), 1e-5)
	assert.InDelta(t, 2.575829, ZScore(0.99), 1e-5)
}

func TestWilsonCoverage(t *testing.T) {
	const (
		p      = 0.3
		n      = 400
		trials = 1000
	)
	rng := rand.New(rand.NewPCG(1, 2))
	covered := 0
	for i := 0; i < trials; i++ {
		hits := 0
		for j := 0; j < n; j++ {
			if rng.Float64() < p {
				hits++
			}
		}
		ci := Wilson(hits, n, 0.95)
		if !ci.Contains(float64(hits) / n) {
			t.Fatalf("interval %+v excludes its own point estimate", ci)
		}
		if ci.Contains(p) {
			covered++
		}
	}
	coverage := float64(covered) / trials
	if coverage < 0.92 || coverage > 0.98 {
		t.Fatalf("coverage %.3f outside nominal band", coverage)
	}
}
