package expression

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, src string) *Expression {
	t.Helper()
	def, err := ParseDefinition([]byte(src), ".json")
	require.NoError(t, err)
	e, err := Build(def)
	require.NoError(t, err)
	return e
}

func TestBuildTree(t *testing.T) {
	e := mustBuild(t, `{
		"id": "greet",
		"prerequisites": [{"logic": {"and": [
			{">=": [{"var": "emotions.joy"}, 0.6]},
			{"or": [
				{"<": [{"var": "moodAxes.threat"}, 20]},
				{"not": [{">=": [{"var": "emotions.fear"}, 0.3]}]}
			]}
		]}}]
	}`)

	assert.Equal(t, KindAnd, e.Root.Kind)
	require.Len(t, e.Leaves, 3)
	assert.Equal(t, "0.0", e.Leaves[0].ID)
	assert.Equal(t, "0.1.0", e.Leaves[1].ID)
	assert.Equal(t, "0.1.1.0", e.Leaves[2].ID)
	assert.Equal(t, "emotions.joy >= 0.6", e.Leaves[0].Description())
	assert.Len(t, e.Nodes, 6)
	for i, n := range e.Nodes {
		assert.Equal(t, i, n.Index)
	}
}

func TestMultiplePrerequisitesJoinUnderAnd(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[
		{"logic": {">=": [{"var": "emotions.joy"}, 0.5]}},
		{"logic": {"<=": [{"var": "moodAxes.threat"}, 10]}}
	]}`)
	assert.Equal(t, KindAnd, e.Root.Kind)
	assert.Len(t, e.Root.Children, 2)
	assert.Equal(t, "0.1", e.Leaves[1].ID)
}

func TestMirroredOperands(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"<": [0.4, {"var": "emotions.joy"}]}}]}`)
	leaf := e.Leaves[0].Leaf
	assert.Equal(t, gate.OpGT, leaf.Operator)
	assert.Equal(t, 0.4, leaf.Threshold)
}

func TestUnsupportedOperatorTolerated(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{"in": [{"var": "actor.tag"}, ["a", "b"]]},
		{">=": [{"var": "emotions.joy"}, 0.5]}
	]}}]}`)
	require.Len(t, e.Unsupported(), 1)
	assert.Equal(t, "in", e.Unsupported()[0].Op)
}

func TestMalformedExpressions(t *testing.T) {
	cases := []string{
		`{"id":"x","prerequisites":[]}`,
		`{"id":"x","prerequisites":[{"logic": {">=": [{"var": "emotions.joy"}]}}]}`,
		`{"id":"x","prerequisites":[{"logic": {">=": [{"var": "emotions.joy"}, "high"]}}]}`,
		`{"id":"x","prerequisites":[{"logic": {">=": [1, 2]}}]}`,
		`{"id":"x","prerequisites":[{"logic": {"and": []}}]}`,
		`{"id":"x","prerequisites":[{"logic": {">=": [{"var": "moodAxes."}, 2]}}]}`,
		`{"id":"x","prerequisites":[{"logic": {"a": 1, "b": 2}}]}`,
	}
	for _, src := range cases {
		def, err := ParseDefinition([]byte(src), ".json")
		require.NoError(t, err)
		_, err = Build(def)
		require.Error(t, err, src)
		assert.True(t, errors.Is(err, ErrMalformedExpression), src)
	}
}

func TestUnknownVarDomainIsUnknownAxis(t *testing.T) {
	for _, path := range []string{"weather.rain", "mood", "emotion.joy"} {
		def, err := ParseDefinition([]byte(`{"id":"x","prerequisites":[{"logic": {">=": [{"var": "`+path+`"}, 2]}}]}`), ".json")
		require.NoError(t, err)
		_, err = Build(def)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, axis.ErrUnknownAxis), path)
		assert.False(t, errors.Is(err, ErrMalformedExpression), path)
		var unknown *axis.UnknownAxisError
		require.True(t, errors.As(err, &unknown), path)
		assert.Equal(t, path, unknown.Name)
	}
}

func TestMalformedReportsClauseText(t *testing.T) {
	def, err := ParseDefinition([]byte(`{"id":"x","prerequisites":[{"logic": {"and": [{">=": [{"var": "emotions.joy"}]}]}}]}`), ".json")
	require.NoError(t, err)
	_, err = Build(def)
	var mal *MalformedExpressionError
	require.True(t, errors.As(err, &mal))
	assert.Equal(t, `{">=":[{"var":"emotions.joy"}]}`, mal.Clause)
}

func TestParseYAMLDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(`
id: yaml_expr
prerequisites:
  - logic:
      and:
        - ">=": [{var: "emotions.joy"}, 0.6]
        - "<=": [{var: "moodAxes.threat"}, 20]
`), ".yaml")
	require.NoError(t, err)
	e, err := Build(def)
	require.NoError(t, err)
	require.Len(t, e.Leaves, 2)
	assert.Equal(t, 20.0, e.Leaves[1].Leaf.Threshold)
}

func TestImpliedPrototype(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, 10]},
		{">=": [{"var": "sexualStates.aroused"}, 0.4]},
		{">=": [{"var": "emotions.joy"}, 0.6]}
	]}}]}`)
	imp := ComputeImpliedPrototype(e)
	assert.True(t, imp.HasEmotions)
	assert.True(t, imp.HasSexualStates)
	assert.False(t, imp.Fallback)
	require.NotNil(t, imp.Reference)
	assert.Equal(t, "aroused", imp.Reference.PrototypeID)
	assert.Equal(t, "0.1", imp.Reference.ClauseID)
}

func TestImpliedPrototypeSkipsNot(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{"not": {">=": [{"var": "sexualStates.aroused"}, 0.4]}},
		{">=": [{"var": "moodAxes.valence"}, 10]}
	]}}]}`)
	imp := ComputeImpliedPrototype(e)
	assert.False(t, imp.HasSexualStates)
	assert.True(t, imp.HasEmotions)
	assert.True(t, imp.Fallback)
	assert.Nil(t, imp.Reference)
}

func TestImpliedPrototypeIgnoresStrictEquality(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{"===": [{"var": "emotions.calm"}, 0]},
		{">": [{"var": "emotions.joy"}, 0.2]}
	]}}]}`)
	imp := ComputeImpliedPrototype(e)
	require.NotNil(t, imp.Reference)
	assert.Equal(t, "joy", imp.Reference.PrototypeID)
	assert.Equal(t, gate.OpGT, imp.Reference.Operator)
}

func TestAndReachable(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{">=": [{"var": "moodAxes.valence"}, 10]},
		{"or": [{">=": [{"var": "moodAxes.threat"}, 10]}, {">=": [{"var": "emotions.joy"}, 0.1]}]}
	]}}]}`)
	reach := AndReachable(e)
	assert.True(t, reach[e.Leaves[0].Index])
	assert.False(t, reach[e.Leaves[1].Index])
}

func TestPrototypeRefsIncludesNegated(t *testing.T) {
	e := mustBuild(t, `{"id":"x","prerequisites":[{"logic": {"and": [
		{"not": {">=": [{"var": "emotions.fear"}, 0.4]}},
		{">=": [{"var": "emotions.joy"}, 0.1]},
		{"<=": [{"var": "emotions.joy"}, 0.9]}
	]}}]}`)
	refs := PrototypeRefs(e)
	assert.Equal(t, []Ref{{Domain: DomainEmotion, Name: "fear"}, {Domain: DomainEmotion, Name: "joy"}}, refs)
}
