package state

import (
	"fmt"
	"maps"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
)

// #region psych-state
// PsychState is one sampled point of psychological state. Values are held
// raw; normalized values are computed once at construction. A PsychState is
// never mutated after New returns, so it can be shared across goroutines and
// retained for later re-analysis.
type PsychState struct {
	mood          map[string]float64
	sexual        map[string]float64
	traits        map[string]float64
	sexualArousal float64
	norm          map[string]float64
}

// #endregion psych-state

// #region constructors
// New builds a state from raw axis values keyed by canonical name or alias.
// Axes left out take the midpoint of their raw domain. sexual_arousal is
// derived from the sexual axes unless given explicitly.
func New(model *axis.Model, raw map[string]float64) (PsychState, error) {
	resolved := make(map[string]float64, len(raw))
	for name, v := range raw {
		a, err := model.LookupIn(name, "state values")
		if err != nil {
			return PsychState{}, err
		}
		resolved[a.Name] = v
	}

	s := PsychState{
		mood:   make(map[string]float64),
		sexual: make(map[string]float64),
		traits: make(map[string]float64),
		norm:   make(map[string]float64),
	}

	for _, a := range model.All() {
		if a.Kind == axis.KindDerived {
			continue
		}
		v, ok := resolved[a.Name]
		if !ok {
			v = (a.RawMin + a.RawMax) / 2
		}
		v = a.Denormalize(a.Normalize(v))
		switch a.Kind {
		case axis.KindMood:
			s.mood[a.Name] = v
		case axis.KindTrait:
			s.traits[a.Name] = v
		case axis.KindSexual:
			s.sexual[a.Name] = v
		}
		s.norm[a.Name] = a.Normalize(v)
	}

	sa, err := model.Lookup(axis.SexualArousal)
	if err != nil {
		return PsychState{}, fmt.Errorf("derive sexual arousal: %w", err)
	}
	if v, ok := resolved[axis.SexualArousal]; ok {
		s.sexualArousal = v
		s.norm[axis.SexualArousal] = sa.Normalize(v)
	} else {
		n := axis.SexualArousalNorm(
			s.norm[axis.SexExcitation], s.norm[axis.SexInhibition], s.norm[axis.BaselineLibido])
		s.norm[axis.SexualArousal] = n
		s.sexualArousal = sa.Denormalize(n)
	}
	return s, nil
}

// FromNormalized builds a state from values already in normalized units. The
// caller declares the representation; values are denormalized explicitly and
// never guessed from their magnitude.
func FromNormalized(model *axis.Model, norm map[string]float64) (PsychState, error) {
	raw := make(map[string]float64, len(norm))
	for name, v := range norm {
		a, err := model.LookupIn(name, "normalized state values")
		if err != nil {
			return PsychState{}, err
		}
		raw[a.Name] = a.Denormalize(v)
	}
	return New(model, raw)
}

// #endregion constructors

// #region accessors
// Norm returns the normalized value of a canonical axis, zero if unknown.
func (s PsychState) Norm(name string) float64 {
	return s.norm[name]
}

// Raw returns the raw value of a canonical axis.
func (s PsychState) Raw(name string) (float64, bool) {
	if v, ok := s.mood[name]; ok {
		return v, true
	}
	if v, ok := s.traits[name]; ok {
		return v, true
	}
	if v, ok := s.sexual[name]; ok {
		return v, true
	}
	if name == axis.SexualArousal {
		return s.sexualArousal, true
	}
	return 0, false
}

// MoodAxes returns a copy of the raw mood axes.
func (s PsychState) MoodAxes() map[string]float64 { return maps.Clone(s.mood) }

// SexualAxes returns a copy of the raw sexual axes.
func (s PsychState) SexualAxes() map[string]float64 { return maps.Clone(s.sexual) }

// AffectTraits returns a copy of the raw affect traits.
func (s PsychState) AffectTraits() map[string]float64 { return maps.Clone(s.traits) }

// SexualArousal returns the raw derived sexual arousal.
func (s PsychState) SexualArousal() float64 { return s.sexualArousal }

// Values returns every raw value including sexual_arousal, suitable for
// passing back to New.
func (s PsychState) Values() map[string]float64 {
	out := make(map[string]float64, len(s.mood)+len(s.traits)+len(s.sexual)+1)
	maps.Copy(out, s.mood)
	maps.Copy(out, s.traits)
	maps.Copy(out, s.sexual)
	out[axis.SexualArousal] = s.sexualArousal
	return out
}

// #endregion accessors
