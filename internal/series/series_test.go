package series

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDuplicateIndex(t *testing.T) {
	_, err := New("co2", []float64{1990, 1991, 1990}, []float64{1, 2, 3})
	var dup *DuplicateIndexError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 1990.0, dup.Index)
	assert.Contains(t, err.Error(), "duplicate index 1990")
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	_, err := New("co2", []float64{1990}, []float64{1, 2})
	require.Error(t, err)
}

func TestNewCopiesInput(t *testing.T) {
	idx := []float64{1, 2}
	vals := []float64{10, 20}
	s, err := New("x", idx, vals)
	require.NoError(t, err)
	vals[0] = 99
	assert.Equal(t, 10.0, s.Values[0])
}

func TestAlignOrdersByIndex(t *testing.T) {
	a, err := New("a", []float64{2002, 2000, 2001}, []float64{3, 1, 2})
	require.NoError(t, err)
	b, err := New("b", []float64{2000, 2001, 2002}, []float64{10, 20, 30})
	require.NoError(t, err)

	idx, xs, ys, err := Align(a, b)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{2000, 2001, 2002}, idx); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 3}, xs); diff != "" {
		t.Fatalf("xs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10, 20, 30}, ys); diff != "" {
		t.Fatalf("ys mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignReportsMisalignment(t *testing.T) {
	a, _ := New("a", []float64{1, 2, 3}, []float64{1, 2, 3})
	b, _ := New("b", []float64{2, 3, 4}, []float64{1, 2, 3})

	_, _, _, err := Align(a, b)
	var mis *MisalignedSeriesError
	require.True(t, errors.As(err, &mis))
	assert.Equal(t, []float64{1}, mis.OnlyA)
	assert.Equal(t, []float64{4}, mis.OnlyB)
}

func TestBetweenAndDropMissing(t *testing.T) {
	s, _ := New("t", []float64{1990, 1991, 1992, 1993}, []float64{1, math.NaN(), 3, 4})
	got := s.Between(1991, 1993).DropMissing()
	assert.Equal(t, []float64{1992, 1993}, got.Index)
	assert.Equal(t, []float64{3, 4}, got.Values)
}

func TestFormatIndex(t *testing.T) {
	assert.Equal(t, "2016", FormatIndex(2016))
	assert.Equal(t, "2016.5", FormatIndex(2016.5))
}
