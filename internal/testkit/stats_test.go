package testkit

import (
	"math"
	"testing"

	"biometric/domain/selection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelatePerfect(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 6, 8, 10, 12}

	for _, m := range selection.CorrelationMethods() {
		cell := correlate(m, x, y)
		require.NotNil(t, cell.Coefficient, m)
		assert.InDelta(t, 1.0, *cell.Coefficient, 1e-9, m)
		require.NotNil(t, cell.PValue, m)
		assert.Less(t, *cell.PValue, 0.05, m)
		assert.Equal(t, 6, *cell.N)
	}
}

func TestCorrelateSkipsMissingPairs(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, 2, nan, 4, 5}
	y := []float64{5, 4, 3, nan, 1}

	cell := correlate(selection.Pearson, x, y)
	assert.Equal(t, 3, *cell.N)
	require.NotNil(t, cell.Coefficient)
	assert.InDelta(t, -1.0, *cell.Coefficient, 1e-9)
}

func TestCorrelateTooFewPairs(t *testing.T) {
	cell := correlate(selection.Spearman, []float64{1, 2}, []float64{3, 4})
	assert.Nil(t, cell.Coefficient)
	assert.Nil(t, cell.PValue)
	assert.Equal(t, 2, *cell.N)
}

func TestCorrelateConstantColumn(t *testing.T) {
	cell := correlate(selection.Pearson, []float64{1, 1, 1, 1}, []float64{1, 2, 3, 4})
	assert.Nil(t, cell.Coefficient)
	assert.Nil(t, cell.PValue)
}

func TestRanksAveragesTies(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks([]float64{10, 20, 20, 30}))
	assert.Equal(t, []float64{3, 1, 2}, ranks([]float64{9, 1, 5}))
}

func TestKendallTau(t *testing.T) {
	assert.InDelta(t, 1.0, kendallTau([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, -1.0, kendallTau([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}), 1e-9)
	// 5 concordant, 1 discordant
	assert.InDelta(t, 4.0/6.0, kendallTau([]float64{1, 2, 3, 4}, []float64{1, 3, 2, 4}), 1e-9)
	assert.True(t, math.IsNaN(kendallTau([]float64{1, 1}, []float64{1, 1})))
}

func TestDescribe(t *testing.T) {
	cs, err := describe("x", []float64{2, 4, 4, 4, 5, 5, 7, 9, math.NaN()}, []float64{10, 90})
	require.NoError(t, err)

	assert.Equal(t, 8, cs.N)
	assert.Equal(t, 1, cs.Missing)
	assert.InDelta(t, 5.0, *cs.CentralTendency.Mean, 1e-9)
	assert.InDelta(t, 4.5, *cs.CentralTendency.Median, 1e-9)
	assert.Equal(t, []float64{4}, []float64(cs.CentralTendency.Mode))
	assert.InDelta(t, 2.0, *cs.Dispersion.Min, 1e-9)
	assert.InDelta(t, 9.0, *cs.Dispersion.Max, 1e-9)
	assert.InDelta(t, 7.0, *cs.Dispersion.Range, 1e-9)
	assert.InDelta(t, math.Sqrt(32.0/7.0), *cs.Dispersion.StdDev, 1e-9)
	require.NotNil(t, cs.Shape.NormalityPValue)
	assert.Equal(t, "D'Agostino K2", cs.Shape.NormalityTest)
	assert.InDelta(t, 32.0/7.0, *cs.Dispersion.Variance, 1e-9)
	assert.InDelta(t, 4.0, *cs.Percentiles.Q1, 1e-9)
	require.Contains(t, cs.CustomPercentiles, "p10")
	require.Contains(t, cs.CustomPercentiles, "p90")
	assert.InDelta(t, 2.0, cs.CustomPercentiles["p10"], 1e-9)
	assert.InDelta(t, 7.4, cs.CustomPercentiles["p90"], 1e-9)
}

func TestDescribeSmallSample(t *testing.T) {
	cs, err := describe("x", []float64{3, 1, 2}, []float64{1, 50})
	require.NoError(t, err)

	require.NotNil(t, cs.Percentiles.P5)
	require.NotNil(t, cs.Percentiles.Q1)
	assert.InDelta(t, 1.0, *cs.Percentiles.P5, 1e-9)
	assert.InDelta(t, 1.0, cs.CustomPercentiles["p1"], 1e-9)
	assert.InDelta(t, 1.5, cs.CustomPercentiles["p50"], 1e-9)
	assert.InDelta(t, 1.0, *cs.Dispersion.Variance, 1e-9)
}

func TestDescribeRejectsOutOfRangePercentile(t *testing.T) {
	_, err := describe("x", []float64{1, 2, 3}, []float64{150})
	assert.Error(t, err)

	_, err = describe("x", []float64{1, 2, 3}, []float64{0})
	assert.Error(t, err)
}

func TestDescribeEmpty(t *testing.T) {
	cs, err := describe("x", []float64{math.NaN(), math.NaN()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cs.N)
	assert.Equal(t, 2, cs.Missing)
	assert.Nil(t, cs.CentralTendency.Mean)
	assert.Nil(t, cs.Dispersion.StdDev)
}

func TestFrequencies(t *testing.T) {
	table := frequencies("arm", []string{"A", "B", "A", "", "C", "A", "B"})

	assert.Equal(t, 6, table.Total)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "A", table.Rows[0].Category)
	assert.Equal(t, 3, table.Rows[0].Count)
	assert.InDelta(t, 50.0, table.Rows[0].Percent, 1e-9)
	assert.Equal(t, "B", table.Rows[1].Category)
	assert.InDelta(t, 100.0, table.Rows[2].CumulativePercent, 1e-9)
}

func TestGenerateCohortIsDeterministic(t *testing.T) {
	cfg := CohortConfig{Rows: 50, Seed: 7}
	a := GenerateCohort(cfg)
	b := GenerateCohort(cfg)

	assert.Equal(t, 50, a.Rows())
	assert.Equal(t, a.Numeric["glucose"], b.Numeric["glucose"])
	assert.Equal(t, []string{"age", "arm", "bmi", "glucose", "hdl", "ldl", "sbp", "sex", "smoker"}, a.Columns())
	assert.ElementsMatch(t, []string{"Control", "Treatment"}, a.levels("arm"))
}

func TestNewDatasetRejectsRaggedColumns(t *testing.T) {
	_, err := NewDataset(map[string][]float64{"a": {1, 2}}, map[string][]string{"b": {"x"}})
	assert.Error(t, err)
}
