// Package sampler draws independent psychological states for Monte Carlo
// simulation.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/state"
)

// #region sampler
// Sampler draws each sampled axis uniformly over its raw domain. A Sampler
// owns its random source and is not safe for concurrent use; create one per
// run.
type Sampler struct {
	model *axis.Model
	rng   *rand.Rand
	seed  uint64
}

// New returns a sampler seeded deterministically. Equal seeds produce equal
// sample sequences.
func New(model *axis.Model, seed uint64) *Sampler {
	return &Sampler{
		model: model,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:  seed,
	}
}

// Seed returns the seed the sampler was created with.
func (s *Sampler) Seed() uint64 {
	return s.seed
}

// Sample draws n states. When r is non-nil, axes it bounds are drawn from the
// bounded range only; every other axis keeps its global domain. The derived
// sexual_arousal is computed, never drawn. n <= 0 yields an empty slice.
func (s *Sampler) Sample(n int, r *regime.Regime) ([]state.PsychState, error) {
	if n <= 0 {
		return []state.PsychState{}, nil
	}
	ranges := s.rawRanges(r)
	out := make([]state.PsychState, 0, n)
	for i := 0; i < n; i++ {
		raw := make(map[string]float64, len(ranges))
		for _, rr := range ranges {
			raw[rr.name] = rr.lo + s.rng.Float64()*(rr.hi-rr.lo)
		}
		ps, err := state.New(s.model, raw)
		if err != nil {
			return nil, fmt.Errorf("sample state %d: %w", i, err)
		}
		out = append(out, ps)
	}
	return out, nil
}

type rawRange struct {
	name   string
	lo, hi float64
}

func (s *Sampler) rawRanges(r *regime.Regime) []rawRange {
	var out []rawRange
	for _, a := range s.model.All() {
		if a.Kind == axis.KindDerived {
			continue
		}
		rr := rawRange{name: a.Name, lo: a.RawMin, hi: a.RawMax}
		if iv, ok := r.Interval(a.Name); ok {
			rr.lo = a.Denormalize(iv.Lo)
			rr.hi = a.Denormalize(iv.Hi)
		}
		out = append(out, rr)
	}
	return out
}

// #endregion sampler
