package psychometric

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "surveygen/domain/psychometric"
	"surveygen/internal"
	"surveygen/internal/statmath"
)

func scaleItems(k, optionCount int) []domain.ItemSpec {
	specs := make([]domain.ItemSpec, k)
	for i := range specs {
		specs[i] = domain.ItemSpec{
			QuestionIndex: i,
			Kind:          domain.KindScale,
			OptionCount:   optionCount,
			Bias:          domain.BiasCenter,
		}
	}
	return specs
}

func quietLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func TestRhoFromAlpha(t *testing.T) {
	assert.InDelta(t, 0.85/(10-0.85*9), RhoFromAlpha(0.85, 10), 1e-12)
	assert.Equal(t, 0.2, RhoFromAlpha(0, 10), "alpha at lower bound")
	assert.Equal(t, 0.2, RhoFromAlpha(1, 10), "alpha at upper bound")
	assert.Equal(t, 0.2, RhoFromAlpha(-3, 10))
	assert.Equal(t, 0.2, RhoFromAlpha(math.NaN(), 10))
	assert.Equal(t, 0.2, RhoFromAlpha(0.8, 1))
}

func TestRhoFromAlpha_InvertsSpearmanBrown(t *testing.T) {
	for _, k := range []int{2, 3, 5, 10, 40} {
		for _, alpha := range []float64{0.05, 0.5, 0.7, 0.85, 0.95, 0.999} {
			rho := RhoFromAlpha(alpha, k)
			assert.InDeltaf(t, alpha, statmath.AlphaFromCorrelation(rho, k), 1e-9, "k=%d alpha=%.3f", k, alpha)
		}
	}
}

func TestBuildPlan_RejectsFewerThanTwoItems(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), quietLogger())

	assert.Nil(t, planner.BuildPlan(nil, 0.85))
	assert.Nil(t, planner.BuildPlan(scaleItems(1, 5), 0.85))
}

func TestBuildPlan_Invariants(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(2)), quietLogger())

	for _, k := range []int{2, 3, 7, 20} {
		for _, alpha := range []float64{0.01, 0.3, 0.7, 0.85, 0.99} {
			plan := planner.BuildPlan(scaleItems(k, 5), alpha)
			require.NotNil(t, plan)

			assert.Greater(t, plan.SigmaE, 0.0)
			assert.Greater(t, plan.Rho(), 0.0)
			assert.Less(t, plan.Rho(), 1.0)
			assert.Equal(t, k, plan.Len())

			for i := 0; i < k; i++ {
				idx, ok := plan.Choice(i, nil)
				require.True(t, ok)
				assert.GreaterOrEqual(t, idx, 0)
				assert.Less(t, idx, 5)
			}
		}
	}
}

func TestBuildPlan_OutOfRangeAlphaFallsBack(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(3)), quietLogger())

	plan := planner.BuildPlan(scaleItems(4, 5), 1.5)
	require.NotNil(t, plan)
	assert.InDelta(t, 0.2, plan.Rho(), 1e-9)
	assert.InDelta(t, 2.0, plan.SigmaE, 1e-9)
}

func TestBuildPlan_MatrixRowsAndLookupMisses(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(4)), quietLogger())

	specs := []domain.ItemSpec{
		{QuestionIndex: 3, Kind: domain.KindMatrix, OptionCount: 4, RowIndex: domain.Row(0)},
		{QuestionIndex: 3, Kind: domain.KindMatrix, OptionCount: 4, RowIndex: domain.Row(1)},
		{QuestionIndex: 5, Kind: domain.KindDropdown, OptionCount: 7, Bias: "sideways"},
	}
	plan := planner.BuildPlan(specs, 0.8)
	require.NotNil(t, plan)

	assert.Equal(t, domain.KindMatrixRow, plan.Items[0].Kind)
	assert.Equal(t, domain.BiasCenter, plan.Items[2].Bias, "unknown bias degrades to center")

	assert.True(t, plan.Covers(3, domain.Row(0)))
	assert.True(t, plan.Covers(3, domain.Row(1)))
	assert.False(t, plan.Covers(3, nil), "the matrix question itself is not a plan key")
	assert.False(t, plan.Covers(3, domain.Row(2)))
	assert.True(t, plan.Covers(5, nil))

	_, ok := plan.Choice(99, nil)
	assert.False(t, ok)
}

func TestBuildPlan_BiasShiftsAnswers(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(5)), quietLogger())

	mean := func(bias domain.Bias) float64 {
		specs := scaleItems(2, 5)
		for i := range specs {
			specs[i].Bias = bias
		}
		total, n := 0.0, 0
		for r := 0; r < 3000; r++ {
			plan := planner.BuildPlan(specs, 0.8)
			for i := range specs {
				idx, _ := plan.Choice(i, nil)
				total += float64(idx)
				n++
			}
		}
		return total / float64(n)
	}

	left, center, right := mean(domain.BiasLeft), mean(domain.BiasCenter), mean(domain.BiasRight)
	assert.Less(t, left, center)
	assert.Less(t, center, right)
	assert.InDelta(t, 2.0, center, 0.1)
}

func TestBuildPlan_AlphaRoundTrip(t *testing.T) {
	const (
		target      = 0.85
		k           = 10
		optionCount = 5
		respondents = 2000
	)

	planner := NewPlanner(rand.New(rand.NewSource(20240601)), quietLogger())
	specs := scaleItems(k, optionCount)

	matrix := make([][]float64, 0, respondents)
	for r := 0; r < respondents; r++ {
		plan := planner.BuildPlan(specs, target)
		require.NotNil(t, plan)

		row := make([]float64, k)
		for i := range specs {
			idx, ok := plan.Choice(i, nil)
			require.True(t, ok)
			row[i] = float64(idx)
		}
		matrix = append(matrix, row)
	}

	alpha := statmath.CronbachAlpha(matrix)
	t.Logf("measured alpha over %d respondents: %.4f", respondents, alpha)
	assert.InDelta(t, target, alpha, 0.05)
}

func TestBuildPlan_DegenerateOptionCountsStayInRange(t *testing.T) {
	for _, optionCount := range []int{0, 1} {
		planner := NewPlanner(rand.New(rand.NewSource(int64(optionCount)+11)), quietLogger())
		specs := scaleItems(2, optionCount)

		for i := 0; i < 1000; i++ {
			plan := planner.BuildPlan(specs, 0.85)
			require.NotNil(t, plan)
			for _, spec := range specs {
				idx, ok := plan.Choice(spec.QuestionIndex, nil)
				require.True(t, ok)
				require.Equalf(t, 0, idx, "option_count=%d", optionCount)
			}
		}
	}
}

func TestDrawAnswer_ClampsIntoOptionRange(t *testing.T) {
	src := rand.New(rand.NewSource(5))
	for _, theta := range []float64{-10, 0, 10} {
		assert.Equal(t, 0, DrawAnswer(src, theta, 0, domain.BiasRight, 1))
		assert.Equal(t, 0, DrawAnswer(src, theta, 1, domain.BiasRight, 1))
	}
	assert.Equal(t, 4, DrawAnswer(src, 10, 5, domain.BiasCenter, 0.1))
}
