package constraint

import (
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry(t *testing.T, entries map[string]prototype.LookupEntry) *prototype.Registry {
	t.Helper()
	reg := prototype.NewRegistry(axis.NewModel())
	require.NoError(t, reg.Load(prototype.LookupTable{Entries: entries}, prototype.TypeEmotion))
	return reg
}

func proto(t *testing.T, reg *prototype.Registry, id string) *prototype.Prototype {
	t.Helper()
	p, err := reg.GetPrototype(id)
	require.NoError(t, err)
	return p
}

func TestCeilingBelowThresholdNeverAchievable(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"faint": {Weights: map[string]float64{"valence": 0.3, "arousal": 0.2}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)

	fit := a.FitClause("0", proto(t, reg, "faint"), gate.OpGTE, 0.8, nil)
	assert.InDelta(t, 0.5, fit.Analysis.Max, 1e-9)
	assert.False(t, fit.Achievable)

	fit = a.FitClause("0", proto(t, reg, "faint"), gate.OpGTE, 0.5, nil)
	assert.True(t, fit.Achievable)
}

func TestRangeFollowsWeightSigns(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"mixed": {Weights: map[string]float64{"valence": 1, "threat": -1}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)
	bounds := map[string]axis.Interval{
		"valence": {Lo: 0.5, Hi: 1},
		"threat":  {Lo: -1, Hi: -0.5},
	}
	an := a.AnalyzeAxisConstraints(proto(t, reg, "mixed"), bounds)
	// divisor is 2: min (0.5 + 0.5)/2, max (1 + 1)/2
	assert.InDelta(t, 0.5, an.Min, 1e-9)
	assert.InDelta(t, 1.0, an.Max, 1e-9)
	require.Len(t, an.Axes, 2)
	assert.Equal(t, "threat", an.Axes[0].Axis)
	assert.InDelta(t, 0.5, an.Axes[0].ContributionMin, 1e-9)
	assert.Empty(t, an.Conflicts)
}

func TestAxisOnlyRangeUnderTightRegime(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"bright": {Weights: map[string]float64{"valence": 1}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)
	an := a.AnalyzeAxisConstraints(proto(t, reg, "bright"), map[string]axis.Interval{"valence": {Lo: 0.8, Hi: 1}})
	assert.InDelta(t, 0.8, an.Min, 1e-9)
	assert.InDelta(t, 1.0, an.Max, 1e-9)
	assert.True(t, an.GatesSatisfiable)
	assert.True(t, an.GatesAlwaysHold)
}

func TestConflictDetection(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"p": {Weights: map[string]float64{"valence": 0.8, "arousal": -0.6, "threat": 0.4}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)
	an := a.AnalyzeAxisConstraints(proto(t, reg, "p"), map[string]axis.Interval{
		"valence": {Lo: -1, Hi: -0.2},
		"arousal": {Lo: 0.3, Hi: 1},
		"threat":  {Lo: -0.5, Hi: 0.5},
	})
	require.Len(t, an.Conflicts, 2)
	assert.Equal(t, "arousal", an.Conflicts[0].Axis)
	assert.Equal(t, ConflictNegativeWeightHighMin, an.Conflicts[0].ConflictType)
	assert.Equal(t, "valence", an.Conflicts[1].Axis)
	assert.Equal(t, ConflictPositiveWeightLowMax, an.Conflicts[1].ConflictType)
}

func TestUnsatisfiableGate(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"lifted": {Weights: map[string]float64{"valence": 1}, Gates: []string{"valence >= 0.35"}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)
	p := proto(t, reg, "lifted")
	bounds := map[string]axis.Interval{"valence": {Lo: -1, Hi: 0.2}}

	an := a.AnalyzeAxisConstraints(p, bounds)
	assert.False(t, an.GatesSatisfiable)
	require.Len(t, an.Gates, 1)
	assert.False(t, an.Gates[0].Satisfiable)

	assert.False(t, a.FitClause("0", p, gate.OpGTE, 0.1, bounds).Achievable)
	// gated intensity is 0 whenever the gate fails
	assert.True(t, a.FitClause("0", p, gate.OpLTE, 0.1, bounds).Achievable)
}

func TestGatedRangeUsesGateBox(t *testing.T) {
	reg := registry(t, map[string]prototype.LookupEntry{
		"lifted": {Weights: map[string]float64{"valence": 1}, Gates: []string{"valence >= 0.35"}},
	})
	a := NewAnalyzer(axis.NewModel(), nil)
	an := a.AnalyzeAxisConstraints(proto(t, reg, "lifted"), nil)
	assert.True(t, an.GatesSatisfiable)
	assert.False(t, an.GatesAlwaysHold)
	assert.InDelta(t, 0.35, an.GatedMin, 1e-9)
	assert.InDelta(t, 1.0, an.GatedMax, 1e-9)
	assert.Equal(t, 0.0, an.Min)
}

func TestGateFeasibilityMonotone(t *testing.T) {
	a := NewAnalyzer(axis.NewModel(), nil)
	bounds := map[string]axis.Interval{"valence": {Lo: 0.1, Hi: 0.6}}
	prev := true
	for i := 0; i <= 40; i++ {
		th := -1 + float64(i)*0.05
		_, _, ok := a.GateBox([]gate.Predicate{{Axis: "valence", Operator: gate.OpGTE, Threshold: th}}, bounds)
		if ok && !prev {
			t.Fatalf("feasibility increased at %.2f", th)
		}
		prev = ok
	}
}
