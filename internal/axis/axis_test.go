package axis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelCounts(t *testing.T) {
	m := NewModel()
	assert.Len(t, m.ByKind(KindMood), 10)
	assert.Len(t, m.ByKind(KindTrait), 7)
	assert.Len(t, m.ByKind(KindSexual), 3)
	assert.Len(t, m.ByKind(KindDerived), 1)
}

func TestMoodAndTraitNamesDisjoint(t *testing.T) {
	m := NewModel()
	mood := map[string]bool{}
	for _, a := range m.ByKind(KindMood) {
		mood[a.Name] = true
	}
	for _, a := range m.ByKind(KindTrait) {
		if mood[a.Name] {
			t.Fatalf("%s appears as both mood axis and affect trait", a.Name)
		}
	}
}

func TestNormalizationRoundTrip(t *testing.T) {
	m := NewModel()
	for _, a := range m.All() {
		mid := (a.RawMin + a.RawMax) / 2
		for _, raw := range []float64{a.RawMin, mid, a.RawMax} {
			norm, err := m.Normalize(a.Name, raw)
			require.NoError(t, err)
			back, err := m.Denormalize(a.Name, norm)
			require.NoError(t, err)
			if math.Abs(back-raw) > 1e-9 {
				t.Errorf("%s: round trip %v -> %v -> %v", a.Name, raw, norm, back)
			}
		}
	}
}

func TestNormalizeDomains(t *testing.T) {
	m := NewModel()

	v, err := m.Normalize(Valence, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	v, err = m.Normalize(InhibitoryControl, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	v, err = m.Normalize(Valence, 250)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9, "out-of-domain raw values clamp")
}

func TestUnknownAxis(t *testing.T) {
	m := NewModel()
	_, err := m.Normalize("happiness", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAxis))

	var uae *UnknownAxisError
	require.True(t, errors.As(err, &uae))
	assert.Equal(t, "happiness", uae.Name)

	_, err = m.LookupIn("happiness", "prototype joy weights")
	assert.Contains(t, err.Error(), "prototype joy weights")
}

func TestResolveAlias(t *testing.T) {
	m := NewModel()
	assert.Equal(t, SexualArousal, m.ResolveAlias("SA"))
	assert.Equal(t, Valence, m.ResolveAlias("valence"))

	a, err := m.Lookup("SA")
	require.NoError(t, err)
	assert.Equal(t, KindDerived, a.Kind)
}

func TestSexualArousalNorm(t *testing.T) {
	assert.InDelta(t, 0.5, SexualArousalNorm(0.8, 0.3, 0), 1e-9)
	assert.Equal(t, 0.0, SexualArousalNorm(0.1, 0.9, 0))
	assert.Equal(t, 1.0, SexualArousalNorm(1, 0, 0.5))
}
