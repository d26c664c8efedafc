package simulation

import "math"

// #region wilson
// Wilson returns the two-sided Wilson score interval for successes out of n
// trials. It widens as n shrinks and stays inside [0,1] as the rate nears 0
// or 1. n == 0 yields [0,1].
func Wilson(successes, n int, level float64) Interval {
	if n <= 0 {
		return Interval{Low: 0, High: 1, Level: level}
	}
	z := ZScore(level)
	nf := float64(n)
	p := float64(successes) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z / denom * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
	return Interval{
		Low:   math.Max(0, center-half),
		High:  math.Min(1, center+half),
		Level: level,
	}
}

// ZScore is the standard normal quantile for a two-sided level.
func ZScore(level float64) float64 {
	if level <= 0 || level >= 1 {
		level = 0.95
	}
	return math.Sqrt2 * math.Erfinv(level)
}

// #endregion wilson
