package axis

import (
	"math"
	"sort"
	"strings"
)

// #region model
// Model is the single source of truth for axis names, aliases and
// normalization rules. It is immutable after construction and safe for
// concurrent reads.
type Model struct {
	axes    map[string]Axis
	order   []string
	aliases map[string]string
}

// NewModel returns the canonical model: 10 mood axes, 7 affect traits,
// 3 sexual axes and the derived sexual_arousal scalar.
func NewModel() *Model {
	m := &Model{
		axes: make(map[string]Axis),
		aliases: map[string]string{
			"SA":            SexualArousal,
			"sa":            SexualArousal,
			"sexualArousal": SexualArousal,
		},
	}

	bipolar := func(name string) Axis {
		return Axis{Name: name, Kind: KindMood, RawMin: -100, RawMax: 100, NormMin: -1, NormMax: 1}
	}
	unipolar := func(name string, kind Kind) Axis {
		return Axis{Name: name, Kind: kind, RawMin: 0, RawMax: 100, NormMin: 0, NormMax: 1}
	}

	for _, name := range []string{
		Valence, Arousal, AgencyControl, Threat, Engagement,
		FutureExpectancy, SelfEvaluation, Affiliation,
	} {
		m.add(bipolar(name))
	}
	m.add(unipolar(InhibitoryControl, KindMood))
	m.add(unipolar(Uncertainty, KindMood))

	for _, name := range []string{
		AffectiveEmpathy, CognitiveEmpathy, HarmAversion, SelfControl,
		DisgustSensitivity, RuminativeTendency, EvaluationSensitivity,
	} {
		m.add(unipolar(name, KindTrait))
	}

	m.add(unipolar(SexExcitation, KindSexual))
	m.add(unipolar(SexInhibition, KindSexual))
	m.add(Axis{Name: BaselineLibido, Kind: KindSexual, RawMin: -50, RawMax: 50, NormMin: -0.5, NormMax: 0.5})
	m.add(unipolar(SexualArousal, KindDerived))

	return m
}

func (m *Model) add(a Axis) {
	m.axes[a.Name] = a
	m.order = append(m.order, a.Name)
}

// #endregion model

// #region lookup
// ResolveAlias maps a known alias to its canonical name. Unknown names are
// returned unchanged.
func (m *Model) ResolveAlias(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := m.aliases[name]; ok {
		return canonical
	}
	return name
}

// Lookup resolves aliases and returns the axis definition.
func (m *Model) Lookup(name string) (Axis, error) {
	canonical := m.ResolveAlias(name)
	a, ok := m.axes[canonical]
	if !ok {
		return Axis{}, &UnknownAxisError{Name: name}
	}
	return a, nil
}

// LookupIn is Lookup with the error annotated by where the name was found.
func (m *Model) LookupIn(name, context string) (Axis, error) {
	a, err := m.Lookup(name)
	if err != nil {
		return Axis{}, &UnknownAxisError{Name: name, Context: context}
	}
	return a, nil
}

// ByKind lists axes of one kind in declaration order.
func (m *Model) ByKind(kind Kind) []Axis {
	var out []Axis
	for _, name := range m.order {
		if a := m.axes[name]; a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// All lists every axis in declaration order.
func (m *Model) All() []Axis {
	out := make([]Axis, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.axes[name])
	}
	return out
}

// Aliases returns alias → canonical pairs sorted by alias.
func (m *Model) Aliases() [][2]string {
	out := make([][2]string, 0, len(m.aliases))
	for alias, canonical := range m.aliases {
		out = append(out, [2]string{alias, canonical})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// #endregion lookup

// #region normalization
// Normalize maps a raw value onto the axis's normalized domain. Values
// outside the raw domain are clamped first.
func (m *Model) Normalize(name string, raw float64) (float64, error) {
	a, err := m.Lookup(name)
	if err != nil {
		return 0, err
	}
	return a.Normalize(raw), nil
}

// Denormalize is the inverse of Normalize.
func (m *Model) Denormalize(name string, norm float64) (float64, error) {
	a, err := m.Lookup(name)
	if err != nil {
		return 0, err
	}
	return a.Denormalize(norm), nil
}

// Normalize applies this axis's raw → normalized rule.
func (a Axis) Normalize(raw float64) float64 {
	raw = clamp(raw, a.RawMin, a.RawMax)
	return a.NormMin + (raw-a.RawMin)*(a.NormMax-a.NormMin)/(a.RawMax-a.RawMin)
}

// Denormalize applies this axis's normalized → raw rule.
func (a Axis) Denormalize(norm float64) float64 {
	norm = clamp(norm, a.NormMin, a.NormMax)
	return a.RawMin + (norm-a.NormMin)*(a.RawMax-a.RawMin)/(a.NormMax-a.NormMin)
}

// #endregion normalization

// #region sexual-arousal
// SexualArousalNorm combines normalized sexual axes into the derived
// sexual_arousal scalar: clamp01(excitation - inhibition + baseline_libido).
func SexualArousalNorm(excitation, inhibition, libido float64) float64 {
	return clamp(excitation-inhibition+libido, 0, 1)
}

// #endregion sexual-arousal

// #region helpers
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// #endregion helpers
