package prototype

import (
	"math"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region intensity
// Divisor is the weight normalizer: max(1, Σ|w|). Prototypes whose absolute
// weights sum below one therefore cannot reach full intensity.
func (p *Prototype) Divisor() float64 {
	var sum float64
	for _, w := range p.Weights {
		sum += math.Abs(w.Value)
	}
	return math.Max(1, sum)
}

// Intensity is the ungated intensity: clamp01(Σ w·x / max(1, Σ|w|)) over
// normalized axis values.
func (p *Prototype) Intensity(v gate.Values) float64 {
	var sum float64
	for _, w := range p.Weights {
		sum += w.Value * v.Norm(w.Axis)
	}
	return clamp01(sum / p.Divisor())
}

// GatePasses reports whether every gate holds.
func (p *Prototype) GatePasses(v gate.Values) bool {
	return gate.Passes(p.Gates, v)
}

// GatedIntensity is Intensity when all gates hold and zero otherwise.
func (p *Prototype) GatedIntensity(v gate.Values) float64 {
	if !p.GatePasses(v) {
		return 0
	}
	return p.Intensity(v)
}

// #endregion intensity

// #region range
// IntensityRange computes the exact ungated [min, max] intensity over a box
// of per-axis intervals. Each weight independently picks the interval end
// that minimises or maximises its term. Axes missing from bounds use their
// full domain from the model.
func (p *Prototype) IntensityRange(model *axis.Model, bounds map[string]axis.Interval) (lo, hi float64) {
	var minSum, maxSum float64
	for _, w := range p.Weights {
		iv := intervalFor(model, bounds, w.Axis)
		if w.Value >= 0 {
			minSum += w.Value * iv.Lo
			maxSum += w.Value * iv.Hi
		} else {
			minSum += w.Value * iv.Hi
			maxSum += w.Value * iv.Lo
		}
	}
	d := p.Divisor()
	return clamp01(minSum / d), clamp01(maxSum / d)
}

func intervalFor(model *axis.Model, bounds map[string]axis.Interval, name string) axis.Interval {
	if iv, ok := bounds[name]; ok {
		return iv
	}
	a, err := model.Lookup(name)
	if err != nil {
		return axis.Interval{}
	}
	return a.NormInterval()
}

// #endregion range

// #region helpers
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// WeightOf returns the coefficient for an axis, zero when unweighted.
func (p *Prototype) WeightOf(name string) float64 {
	for _, w := range p.Weights {
		if w.Axis == name {
			return w.Value
		}
	}
	return 0
}

// #endregion helpers
