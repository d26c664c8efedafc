package blocker

import (
	"context"
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/eval"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, reg *prototype.Registry, src string, n int) (*eval.Evaluator, *simulation.Result) {
	t.Helper()
	def, err := expression.ParseDefinition([]byte(src), ".json")
	require.NoError(t, err)
	e, err := expression.Build(def)
	require.NoError(t, err)
	ev, err := eval.NewEvaluator(reg.Model(), reg, e, nil)
	require.NoError(t, err)
	cfg := simulation.DefaultConfig()
	cfg.SampleCount = n
	res, err := simulation.NewEngine(cfg, reg.Model(), nil).Run(context.Background(), ev)
	require.NoError(t, err)
	return ev, res
}

func defaultRegistry(t *testing.T) *prototype.Registry {
	t.Helper()
	reg, err := prototype.Default(axis.NewModel())
	require.NoError(t, err)
	return reg
}

func TestRankByFailureRate(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, -50]},
		{">=": [{"var": "moodAxes.threat"}, 60]},
		{">=": [{"var": "moodAxes.arousal"}, 0]}
	]}}]}`, 3000)

	bs := NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res)
	require.Len(t, bs, 3)
	assert.Equal(t, "0.1", bs[0].ClauseID)
	assert.Equal(t, "0.2", bs[1].ClauseID)
	assert.Equal(t, "0.0", bs[2].ClauseID)
	for i, b := range bs {
		assert.Equal(t, i+1, b.Rank)
		assert.NotNil(t, b.Breakdown)
	}
}

func TestTopLimitsDisplayOnly(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, 40]},
		{">=": [{"var": "moodAxes.arousal"}, 60]}
	]}}]}`, 3000)

	cfg := DefaultConfig()
	cfg.MaxBlockers = 1
	a := NewAnalyzer(cfg, axis.NewModel(), nil)
	ranked := a.RankBlockers(ev, res)
	require.Len(t, ranked, 2)
	top := a.Top(ranked)
	require.Len(t, top, 1)
	assert.Equal(t, "0.1", top[0].ClauseID)

	// the clause cut from the table still carries its analyses
	cut := ranked[1]
	assert.Equal(t, "0.0", cut.ClauseID)
	assert.Positive(t, cut.LastMile.SoleBlockerCount)
	assert.Positive(t, cut.LastMile.ImpactPP)
	assert.Positive(t, cut.NearMiss.FailureCount)
	assert.True(t, cut.Ceiling.Achievable)
}

func TestTiesKeepDeclarationOrder(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, 200]},
		{">=": [{"var": "moodAxes.threat"}, 200]}
	]}}]}`, 200)

	bs := NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res)
	assert.Equal(t, 1.0, bs[0].FailureRate)
	assert.Equal(t, "0.0", bs[0].ClauseID)
	assert.Equal(t, "0.1", bs[1].ClauseID)
}

func TestCeilingViolation(t *testing.T) {
	reg := prototype.NewRegistry(axis.NewModel())
	require.NoError(t, reg.Load(prototype.LookupTable{Entries: map[string]prototype.LookupEntry{
		"faint": {Weights: map[string]float64{"valence": 0.25, "arousal": -0.25}},
	}}, prototype.TypeEmotion))

	for _, n := range []int{100, 5000} {
		ev, res := run(t, reg, `{"id":"x","prerequisites":[{"logic": {">=": [{"var": "emotions.faint"}, 0.8]}}]}`, n)
		bs := NewAnalyzer(DefaultConfig(), reg.Model(), nil).RankBlockers(ev, res)
		require.Len(t, bs, 1)
		c := bs[0].Ceiling
		assert.False(t, c.Achievable)
		assert.InDelta(t, 0.5, c.MaxAchievable, 1e-9)
		assert.InDelta(t, 0.3, c.Gap, 1e-9)
		assert.Equal(t, 0, res.PassCount)
		assert.Equal(t, "faint", bs[0].PrototypeID)
	}
}

func TestNearMiss(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {">=": [{"var": "moodAxes.valence"}, 0]}}]}`, 4000)
	nm := NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res)[0].NearMiss
	// epsilon is 5% of the 200-wide raw domain; about 10 of every 100 failures
	assert.Equal(t, 10.0, nm.Epsilon)
	assert.InDelta(t, 0.1, nm.NearMissRate, 0.03)
	assert.False(t, nm.Tunable)
}

func TestLastMile(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, 50]},
		{">=": [{"var": "moodAxes.threat"}, 90]}
	]}}]}`, 4000)
	bs := NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res)

	threat := bs[0]
	require.Equal(t, "0.1", threat.ClauseID)
	// valence passes a quarter of the time, threat 5% of the time
	assert.InDelta(t, 0.25, float64(threat.LastMile.OthersPassCount)/4000, 0.03)
	assert.InDelta(t, 0.95, threat.LastMile.LastMileFailRate, 0.03)
	assert.InDelta(t, 23.75, threat.LastMile.ImpactPP, 3)
	assert.False(t, threat.LastMile.Decisive)

	valence := bs[1]
	assert.InDelta(t, 3.75, valence.LastMile.ImpactPP, 1.2)
}

func TestLastMileUnderOrCountsOnlyFailingSamples(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {"or": [
		{">=": [{"var": "moodAxes.valence"}, 50]},
		{">=": [{"var": "moodAxes.threat"}, 50]}
	]}}]}`, 4000)
	failing := res.SampleCount - res.PassCount
	for _, b := range NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res) {
		// every failing sample fails both branches, so either one alone rescues it
		assert.Equal(t, failing, b.LastMile.SoleBlockerCount, b.ClauseID)
		assert.InDelta(t, 56.25, b.LastMile.ImpactPP, 3, b.ClauseID)
		assert.Equal(t, res.SampleCount, b.LastMile.OthersPassCount, b.ClauseID)
	}
}

func TestSingleClauseIsDecisive(t *testing.T) {
	ev, res := run(t, defaultRegistry(t), `{"id":"x","prerequisites":[{"logic": {">=": [{"var": "moodAxes.valence"}, 50]}}]}`, 1000)
	lm := NewAnalyzer(DefaultConfig(), axis.NewModel(), nil).RankBlockers(ev, res)[0].LastMile
	assert.Equal(t, res.SampleCount-res.PassCount, lm.SoleBlockerCount)
	assert.Equal(t, 1000, lm.OthersPassCount)
	assert.True(t, lm.Decisive)
}

func TestPercentilesUniform(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i)
	}
	p := percentiles(values, 25)
	assert.Equal(t, 10.0, p.P10)
	assert.Equal(t, 50.0, p.P50)
	assert.Equal(t, 90.0, p.P90)
	assert.Equal(t, ShapeNormal, p.Shape)
	assert.InDelta(t, 25.0/101, p.ThresholdPercentile, 1e-9)

	skewed := []float64{0, 0, 0, 0, 0, 0, 0, 1, 5, 20}
	assert.Equal(t, ShapeRightSkewed, percentiles(skewed, 1).Shape)
}

func TestQuantileEdges(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
	assert.Equal(t, 3.0, Quantile([]float64{3}, 0.9))
	assert.Equal(t, 1.5, Quantile([]float64{1, 2}, 0.5))
}
