package analysis

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

func mustSeries(t *testing.T, name string, idx, vals []float64) series.Series {
	t.Helper()
	s, err := series.New(name, idx, vals)
	require.NoError(t, err)
	return s
}

func carsRow(t *testing.T) series.Series {
	t.Helper()
	opt := table.DefaultOptions()
	opt.Delimiter = ';'
	tbl, err := table.Load(filepath.Join("..", "table", "testdata", "emissions.csv"), opt)
	require.NoError(t, err)
	s, err := tbl.RowSeries("Category", "Cars")
	require.NoError(t, err)
	return s
}

func TestSummarizeCarsRow(t *testing.T) {
	sum, err := Summarize(carsRow(t))
	require.NoError(t, err)
	assert.Equal(t, 1990.0, sum.FirstIndex)
	assert.Equal(t, 2016.0, sum.LastIndex)
	assert.InDelta(t, 4.176, sum.AbsoluteChange, 1e-9)
	assert.InDelta(t, 70.22, sum.PercentChange, 0.005)
	assert.InDelta(t, 4.176/26, sum.AnnualizedChange, 1e-9)
	assert.InDelta(t, sum.PercentChange/26, sum.AnnualizedPercent, 1e-9)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	s := carsRow(t)
	a, errA := Summarize(s)
	b, errB := Summarize(s)
	require.NoError(t, errA)
	require.NoError(t, errB)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("summaries differ (-first +second):\n%s", diff)
	}
}

func TestSummarizeInsufficientData(t *testing.T) {
	_, err := Summarize(mustSeries(t, "one", []float64{2000}, []float64{1}))
	assert.ErrorIs(t, err, series.ErrInsufficientData)

	_, err = Summarize(mustSeries(t, "gaps", []float64{2000, 2001}, []float64{1, math.NaN()}))
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestSummarizeZeroFirstValue(t *testing.T) {
	sum, err := Summarize(mustSeries(t, "z", []float64{2000, 2010}, []float64{0, 5}))
	require.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, 5.0, sum.AbsoluteChange)
	assert.Equal(t, 0.5, sum.AnnualizedChange)
	assert.True(t, math.IsNaN(sum.PercentChange))
	assert.True(t, math.IsNaN(sum.AnnualizedPercent))
}

func TestSummarizeUsesIndexOrder(t *testing.T) {
	sum, err := Summarize(mustSeries(t, "shuffled", []float64{2002, 2000, 2001}, []float64{30, 10, 20}))
	require.NoError(t, err)
	assert.Equal(t, 10.0, sum.First)
	assert.Equal(t, 30.0, sum.Last)
	assert.InDelta(t, 200.0, sum.PercentChange, 1e-12)
}

func TestPercentChange(t *testing.T) {
	for _, first := range []float64{-2, 0.5, 1, 100} {
		_, err := PercentChange(first, 3)
		assert.NoError(t, err, "first=%v", first)
	}
	_, err := PercentChange(0, 3)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestCorrelatePerfectLine(t *testing.T) {
	idx := []float64{1, 2, 3}
	a := mustSeries(t, "a", idx, []float64{1, 2, 3})
	b := mustSeries(t, "b", idx, []float64{2, 4, 6})

	ab, err := Correlate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ab.Correlation, 1e-12)
	assert.InDelta(t, 2.0, ab.Slope, 1e-12)
	assert.InDelta(t, 0.0, ab.Intercept, 1e-12)
	assert.InDelta(t, 1.0, ab.RSquared, 1e-12)
	assert.InDelta(t, 0.0, ab.PValue, 1e-6)
	assert.Equal(t, 3, ab.N)

	ba, err := Correlate(b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab.Correlation, ba.Correlation, 1e-12)
	assert.InDelta(t, 0.5, ba.Slope, 1e-12)
}

func TestCorrelatePValue(t *testing.T) {
	idx := []float64{1, 2, 3, 4, 5, 6}
	a := mustSeries(t, "a", idx, []float64{1, 2, 3, 4, 5, 6})
	b := mustSeries(t, "b", idx, []float64{2, 1, 4, 3, 6, 5})

	reg, err := Correlate(a, b)
	require.NoError(t, err)
	// r = 0.8286 with 4 degrees of freedom.
	assert.InDelta(t, 0.8286, reg.Correlation, 1e-4)
	assert.InDelta(t, 0.0416, reg.PValue, 1e-3)
	assert.Greater(t, reg.StdErr, 0.0)
	assert.Equal(t, "moderate", Strength(0.5))
	assert.Equal(t, "strong", Strength(-reg.Correlation))
}

func TestCorrelateFailures(t *testing.T) {
	a := mustSeries(t, "a", []float64{1, 2, 3}, []float64{1, 2, 3})

	_, err := Correlate(a, mustSeries(t, "b", []float64{1, 2, 4}, []float64{1, 2, 3}))
	var mis *series.MisalignedSeriesError
	require.ErrorAs(t, err, &mis)

	one := mustSeries(t, "one", []float64{1}, []float64{1})
	_, err = Correlate(one, one.Renamed("other"))
	assert.ErrorIs(t, err, series.ErrInsufficientData)

	flat := mustSeries(t, "flat", []float64{1, 2, 3}, []float64{4, 4, 4})
	_, err = Correlate(flat, a)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	reg, err := Correlate(a, flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, reg.Slope)
	assert.Equal(t, 4.0, reg.Intercept)
	assert.Equal(t, 1.0, reg.PValue)
}

func TestCorrelateSkipsMissingPairs(t *testing.T) {
	idx := []float64{1, 2, 3, 4}
	a := mustSeries(t, "a", idx, []float64{1, 2, math.NaN(), 4})
	b := mustSeries(t, "b", idx, []float64{2, 4, 6, 8})

	reg, err := Correlate(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.N)
	assert.InDelta(t, 1.0, reg.Correlation, 1e-12)
	assert.InDelta(t, 2.0, reg.Slope, 1e-12)

	gaps := mustSeries(t, "gaps", idx, []float64{math.NaN(), 1, math.NaN(), math.NaN()})
	_, err = Correlate(gaps, b)
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestFitAllowsRepeatedX(t *testing.T) {
	reg, err := Fit("Age", "Score", []float64{20, 20, 30, 40}, []float64{1, 2, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, 4, reg.N)
	assert.Greater(t, reg.Correlation, 0.9)
	assert.InDelta(t, 47.5/275, reg.Slope, 1e-9)
}

func TestTrendline(t *testing.T) {
	reg := Regression{Slope: 2, Intercept: 1}
	xs, ys := Trendline(reg, 0, 10, 100)
	require.Len(t, xs, 100)
	assert.Equal(t, 0.0, xs[0])
	assert.Equal(t, 10.0, xs[99])
	assert.Equal(t, 21.0, ys[99])
	assert.Equal(t, 1.0, ys[0])
}

func TestDescribe(t *testing.T) {
	got := Describe([]float64{4, 1, math.NaN(), 3, 2})
	want := Stats{Count: 4, Mean: 2.5, Std: math.Sqrt(5.0 / 3.0), Min: 1, Q1: 1.75, Median: 2.5, Q3: 3.25, Max: 4}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("describe mismatch (-want +got):\n%s", diff)
	}

	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestMatrixAndStrongest(t *testing.T) {
	idx := []float64{1, 2, 3, 4}
	a := mustSeries(t, "a", idx, []float64{1, 2, 3, 4})
	b := mustSeries(t, "b", idx, []float64{2, 4, 6, 8})
	c := mustSeries(t, "c", idx, []float64{4, 1, 3, 2})
	flat := mustSeries(t, "flat", idx, []float64{1, 1, 1, 1})

	m, err := Matrix(a, b, c, flat)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "flat"}, m.Columns)
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-12)
	assert.Equal(t, m.Values[0][2], m.Values[2][0])
	assert.True(t, math.IsNaN(m.Values[0][3]))

	name, r, ok := m.Strongest("c")
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b"}, name)
	assert.InDelta(t, -0.4, r, 1e-12)

	_, _, ok = m.Strongest("missing")
	assert.False(t, ok)

	pairs := m.TopPairs(1)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)

	_, err = Matrix(a)
	assert.ErrorIs(t, err, series.ErrInsufficientData)
}

func TestMatrixUsesSharedIndex(t *testing.T) {
	a := mustSeries(t, "a", []float64{1, 2, 3, 4}, []float64{1, 2, 3, math.NaN()})
	b := mustSeries(t, "b", []float64{2, 3, 4, 5}, []float64{2, 3, 4, 5})
	m, err := Matrix(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Pairs[0][1])
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-12)
}
