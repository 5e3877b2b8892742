// Package statmath holds the stateless numeric primitives shared by the
// response generators: normal sampling, the inverse normal CDF, quantile
// binning and reliability statistics. Every function is safe for concurrent use.
package statmath

import (
	"math"
	"math/rand"
)

// Source is the minimal random source the samplers need. *rand.Rand satisfies it
type Source interface {
	Float64() float64
}

// Bounds for quantile binning
const (
	MinCategories = 2
	MaxCategories = 50
)

// Acklam's rational approximation coefficients for the inverse normal CDF
var (
	acklamA = [6]float64{
		-39.69683028665376,
		220.9460984245205,
		-275.9285104469687,
		138.3577518672690,
		-30.66479806614716,
		2.506628277459239,
	}
	acklamB = [5]float64{
		-54.47609879822406,
		161.5858368580409,
		-155.6989798598866,
		66.80131188771972,
		-13.28068155288572,
	}
	acklamC = [6]float64{
		-0.007784894002430293,
		-0.3223964580411365,
		-2.400758277161838,
		-2.549732539343734,
		4.374664141464968,
		2.938163982698783,
	}
	acklamD = [4]float64{
		0.007784695709041462,
		0.3224671290700398,
		2.445134137142996,
		3.754408661907416,
	}
)

const (
	pLow  = 0.02425
	pHigh = 1 - pLow
)

// Randn draws a standard normal sample with the Box-Muller transform.
// A nil source falls back to the process-wide math/rand generator
func Randn(src Source) float64 {
	u := nonZeroUniform(src)
	v := nonZeroUniform(src)
	return math.Sqrt(-2.0*math.Log(u)) * math.Cos(2.0*math.Pi*v)
}

func nonZeroUniform(src Source) float64 {
	for {
		var x float64
		if src == nil {
			x = rand.Float64()
		} else {
			x = src.Float64()
		}
		if x != 0 {
			return x
		}
	}
}

// NormalInv is the inverse standard normal CDF (quantile function).
// p <= 0 maps to -Inf and p >= 1 to +Inf
func NormalInv(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return math.NaN()
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	}

	c, d := acklamC, acklamD

	if p < pLow {
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	if p > pHigh {
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	a, b := acklamA, acklamB
	q := p - 0.5
	r := q * q
	return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
		(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
}

// CategoryCount clamps an option count into the supported binning range
func CategoryCount(optionCount int) int {
	if optionCount < MinCategories {
		return MinCategories
	}
	if optionCount > MaxCategories {
		return MaxCategories
	}
	return optionCount
}

// ZToCategory bins a standard normal score into one of m equiprobable
// categories, m = CategoryCount(optionCount). The result is 0-based
func ZToCategory(z float64, optionCount int) int {
	m := CategoryCount(optionCount)
	for j := 1; j < m; j++ {
		if z <= NormalInv(float64(j)/float64(m)) {
			return j - 1
		}
	}
	return m - 1
}
