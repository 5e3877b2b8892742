package statmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

type zeroThenSource struct {
	values []float64
	calls  int
}

func (s *zeroThenSource) Float64() float64 {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v
}

func TestRandn_RedrawsZeroUniforms(t *testing.T) {
	src := &zeroThenSource{values: []float64{0, 0.5, 0, 0.25}}

	z := Randn(src)

	assert.False(t, math.IsInf(z, 0), "log(0) must never be taken")
	assert.Equal(t, 4, src.calls, "each zero draw should be replaced")
	want := math.Sqrt(-2*math.Log(0.5)) * math.Cos(2*math.Pi*0.25)
	assert.InDelta(t, want, z, 1e-12)
}

func TestRandn_Moments(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 50000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = Randn(rng)
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	assert.InDelta(t, 0.0, mean, 0.03)
	assert.InDelta(t, 1.0, Variance(samples), 0.03)
}

func TestRandn_NilSourceUsesGlobal(t *testing.T) {
	z := Randn(nil)
	assert.False(t, math.IsNaN(z))
}

func TestNormalInv_Boundaries(t *testing.T) {
	assert.True(t, math.IsInf(NormalInv(0), -1))
	assert.True(t, math.IsInf(NormalInv(-0.3), -1))
	assert.True(t, math.IsInf(NormalInv(1), 1))
	assert.True(t, math.IsInf(NormalInv(1.7), 1))
	assert.Equal(t, 0.0, NormalInv(0.5))
}

func TestNormalInv_MatchesReferenceQuantile(t *testing.T) {
	probs := []float64{1e-10, 1e-6, 0.001, 0.01, 0.02, 0.02425, 0.05, 0.1, 0.25, 0.4,
		0.5, 0.6, 0.75, 0.9, 0.95, 0.97575, 0.98, 0.99, 0.999, 1 - 1e-6}

	for _, p := range probs {
		want := distuv.UnitNormal.Quantile(p)
		got := NormalInv(p)
		tol := 1e-8 * math.Max(1, math.Abs(want))
		assert.InDeltaf(t, want, got, tol, "p=%g", p)
	}
}

func TestNormalInv_Symmetry(t *testing.T) {
	for _, p := range []float64{0.001, 0.01, 0.2, 0.3, 0.45} {
		assert.InDelta(t, -NormalInv(p), NormalInv(1-p), 1e-9)
	}
}

func TestZToCategory_FiveOptionCutPoints(t *testing.T) {
	// Five equiprobable bins cut at roughly -0.84, -0.25, 0.25, 0.84
	assert.Equal(t, 0, ZToCategory(-1.0, 5))
	assert.Equal(t, 1, ZToCategory(-0.5, 5))
	assert.Equal(t, 2, ZToCategory(0.0, 5))
	assert.Equal(t, 3, ZToCategory(0.5, 5))
	assert.Equal(t, 4, ZToCategory(1.0, 5))
	assert.Equal(t, 0, ZToCategory(math.Inf(-1), 5))
	assert.Equal(t, 4, ZToCategory(math.Inf(1), 5))
}

func TestZToCategory_ThresholdNeighbourhood(t *testing.T) {
	const eps = 1e-7
	for _, m := range []int{2, 3, 5, 7, 11, 50} {
		for j := 1; j < m; j++ {
			cut := NormalInv(float64(j) / float64(m))
			assert.Equalf(t, j-1, ZToCategory(cut-eps, m), "m=%d j=%d below", m, j)
			assert.Equalf(t, j, ZToCategory(cut+eps, m), "m=%d j=%d above", m, j)
		}
	}
}

func TestZToCategory_Monotone(t *testing.T) {
	for _, m := range []int{0, 1, 2, 4, 5, 10, 49, 50, 80} {
		prev := -1
		for z := -5.0; z <= 5.0; z += 0.01 {
			c := ZToCategory(z, m)
			require.GreaterOrEqualf(t, c, prev, "m=%d z=%.2f", m, z)
			require.Less(t, c, CategoryCount(m))
			prev = c
		}
	}
}

func TestZToCategory_ClampsOptionCount(t *testing.T) {
	assert.Equal(t, 1, ZToCategory(3.0, 0), "degenerate counts bin into two categories")
	assert.Equal(t, 1, ZToCategory(3.0, 1))
	assert.Equal(t, 49, ZToCategory(10.0, 500))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{3}))
	assert.InDelta(t, 2.5, Variance([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Equal(t, 0.0, Variance([]float64{4, 4, 4}))
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}, 0},
		{"too short", []float64{1}, []float64{1}, 0},
		{"constant series", []float64{1, 2, 3}, []float64{5, 5, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Correlation(tt.xs, tt.ys), 1e-9)
		})
	}
}

func TestCronbachAlpha_KnownValue(t *testing.T) {
	matrix := [][]float64{
		{1, 2, 2},
		{2, 3, 3},
		{3, 3, 4},
		{4, 5, 4},
		{5, 5, 5},
	}
	// item variances 2.5, 1.8, 1.3 -> 5.6; total variance 15.7
	want := 1.5 * (1 - 5.6/15.7)
	assert.InDelta(t, want, CronbachAlpha(matrix), 1e-9)
}

func TestCronbachAlpha_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, CronbachAlpha(nil))
	assert.Equal(t, 0.0, CronbachAlpha([][]float64{{1}, {2}, {3}}), "single item")
	assert.Equal(t, 0.0, CronbachAlpha([][]float64{{1, 2}, {1, 2}}), "constant totals")
	assert.Equal(t, 0.0, CronbachAlpha([][]float64{{1, 2}, {3}}), "ragged rows")
}

func TestAlphaFromCorrelation(t *testing.T) {
	assert.Equal(t, 0.0, AlphaFromCorrelation(0.5, 1))
	assert.InDelta(t, 10*0.3/(1+9*0.3), AlphaFromCorrelation(0.3, 10), 1e-12)
}
