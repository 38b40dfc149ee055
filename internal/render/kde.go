package render

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SilvermanBandwidth is Silverman's rule of thumb for a Gaussian kernel. Degenerate
// samples (fewer than two values, or no spread) get a small positive width so the
// density stays finite.
func SilvermanBandwidth(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0.1
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	sd := stat.StdDev(sorted, nil)
	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	spread := sd
	if iqr > 0 {
		spread = math.Min(sd, iqr/1.34)
	}
	if spread <= 0 {
		return 0.1
	}
	return 0.9 * spread * math.Pow(float64(n), -0.2)
}

// Density evaluates a Gaussian kernel density estimate of xs at each grid point.
func Density(xs []float64, bandwidth float64, grid []float64) []float64 {
	out := make([]float64, len(grid))
	if len(xs) == 0 || bandwidth <= 0 {
		return out
	}
	norm := 1 / (float64(len(xs)) * bandwidth)
	for i, g := range grid {
		var sum float64
		for _, x := range xs {
			sum += distuv.UnitNormal.Prob((g - x) / bandwidth)
		}
		out[i] = sum * norm
	}
	return out
}

// linspace returns n evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
