package statmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Variance returns the sample variance (n-1 denominator), or 0 when fewer
// than two values are given
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	v := stat.Variance(values, nil)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// Correlation returns the Pearson correlation of xs and ys. It is 0 when the
// lengths differ, fewer than two pairs exist, or either series is constant
func Correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0.0
	}
	if Variance(xs) == 0 || Variance(ys) == 0 {
		return 0.0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0.0
	}
	return r
}

// CronbachAlpha computes alpha over a respondent x item matrix:
//
//	alpha = k/(k-1) * (1 - sum(var(item)) / var(total))
//
// It returns 0 for fewer than two items, ragged rows or a constant total score
func CronbachAlpha(matrix [][]float64) float64 {
	if len(matrix) == 0 {
		return 0.0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0.0
	}

	totals := make([]float64, len(matrix))
	columns := make([][]float64, k)
	for j := range columns {
		columns[j] = make([]float64, len(matrix))
	}
	for i, row := range matrix {
		if len(row) != k {
			return 0.0
		}
		totals[i] = floats.Sum(row)
		for j, v := range row {
			columns[j][i] = v
		}
	}

	varTotal := Variance(totals)
	if varTotal == 0 {
		return 0.0
	}

	sumItemVar := 0.0
	for _, col := range columns {
		sumItemVar += Variance(col)
	}

	kf := float64(k)
	return (kf / (kf - 1)) * (1 - sumItemVar/varTotal)
}

// AlphaFromCorrelation is the standardized alpha implied by k items with mean
// inter-item correlation rho (Spearman-Brown)
func AlphaFromCorrelation(rho float64, k int) float64 {
	if k < 2 {
		return 0.0
	}
	kf := float64(k)
	denom := 1 + (kf-1)*rho
	if denom == 0 {
		return 0.0
	}
	return kf * rho / denom
}
