package fit

import (
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/constraint"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/sampler"
	"github.com/danielpatrickdp/exprdiag/internal/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, src string) (*Service, *expression.Expression, []state.PsychState) {
	t.Helper()
	model := axis.NewModel()
	reg, err := prototype.Default(model)
	require.NoError(t, err)
	def, err := expression.ParseDefinition([]byte(src), ".json")
	require.NoError(t, err)
	e, err := expression.Build(def)
	require.NoError(t, err)
	contexts, err := sampler.New(model, 5).Sample(1500, nil)
	require.NoError(t, err)
	return NewService(DefaultConfig(), reg, nil), e, contexts
}

func ptr(v float64) *float64 { return &v }

const joyExpr = `{"id":"joyful","prerequisites":[{"logic": {"and": [
	{">=": [{"var": "moodAxes.valence"}, 40]},
	{">=": [{"var": "emotions.joy"}, 0.5]}
]}}]}`

func TestLeaderboardIdempotent(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)

	a, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	b, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)

	if diff := cmp.Diff(a.Entries, b.Entries); diff != "" {
		t.Fatalf("leaderboard changed between calls (-a +b):\n%s", diff)
	}
	assert.Same(t, a, b)
	assert.Equal(t, 1, svc.Size())

	svc.Clear()
	assert.Equal(t, 0, svc.Size())
	c, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	if diff := cmp.Diff(a, c); diff != "" {
		t.Fatalf("recomputed leaderboard differs (-a +c):\n%s", diff)
	}
}

func TestCacheKeyedByInputs(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)
	_, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	_, err = svc.AnalyzeAllPrototypeFit(e, contexts, Options{Threshold: ptr(0.7)})
	require.NoError(t, err)
	_, err = svc.AnalyzeAllPrototypeFit(e, contexts[:100], Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Size())
}

func TestExplicitZeroThreshold(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)
	lb, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{Threshold: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, lb.Threshold)
	require.NotEmpty(t, lb.Entries)
	for _, en := range lb.Entries {
		assert.Equal(t, en.GatePassCount, en.AboveCount, en.PrototypeID)
	}

	def, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, def.Threshold)
}

func TestLeaderboardUsesInferredRegime(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)
	lb, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)

	assert.Equal(t, PopulationInRegime, lb.Population)
	assert.True(t, lb.RegimeInferred)
	assert.InDelta(t, 0.3*1500, lb.PopulationSize, 90)
	assert.Equal(t, 0.5, lb.Threshold)

	top, ok := lb.Top()
	require.True(t, ok)
	assert.Equal(t, "joy", top.PrototypeID)
	assert.True(t, top.IsReference)
	for i, en := range lb.Entries {
		assert.Equal(t, i+1, en.Rank)
		assert.Equal(t, prototype.TypeEmotion, en.Type)
	}
}

func TestScoreOrderingAndTies(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)
	lb, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	for i := 1; i < len(lb.Entries); i++ {
		prev, cur := lb.Entries[i-1], lb.Entries[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.PrototypeID > cur.PrototypeID) {
			t.Fatalf("entries %d and %d out of order", i-1, i)
		}
	}
}

func TestConflictsAgainstDeclaredRegime(t *testing.T) {
	svc, e, contexts := setup(t, joyExpr)
	r, err := regime.New(axis.NewModel(), regime.Definition{"valence": {Max: regime.Ptr(-0.3)}})
	require.NoError(t, err)

	lb, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{Regime: r})
	require.NoError(t, err)
	assert.False(t, lb.RegimeInferred)

	var joy Entry
	for _, en := range lb.Entries {
		if en.PrototypeID == "joy" {
			joy = en
		}
	}
	require.Len(t, joy.Conflicts, 1)
	assert.Equal(t, constraint.ConflictPositiveWeightLowMax, joy.Conflicts[0].ConflictType)
	assert.Equal(t, 0, joy.GatePassCount)
}

func TestGlobalPopulationWithoutRegime(t *testing.T) {
	svc, e, contexts := setup(t, `{"id":"s","prerequisites":[{"logic": {">=": [{"var": "sexualStates.aroused"}, 0.3]}}]}`)
	lb, err := svc.AnalyzeAllPrototypeFit(e, contexts, Options{})
	require.NoError(t, err)
	assert.Equal(t, PopulationGlobal, lb.Population)
	assert.Equal(t, len(contexts), lb.PopulationSize)
	assert.Equal(t, 0.3, lb.Threshold)
	for _, en := range lb.Entries {
		assert.Equal(t, prototype.TypeSexual, en.Type)
	}
}

func TestEmptyPopulation(t *testing.T) {
	svc, e, _ := setup(t, joyExpr)
	lb, err := svc.AnalyzeAllPrototypeFit(e, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, lb.PopulationSize)
	for _, en := range lb.Entries {
		assert.Equal(t, 0.0, en.GatePassRate)
	}
}
