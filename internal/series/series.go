// Package series holds the indexed numeric sequences that flow from the table
// loader into the calculator and the scenario projector.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInsufficientData reports that a statistic needs more points than it was given.
var ErrInsufficientData = errors.New("insufficient data")

// MisalignedSeriesError indicates two series do not share the same index set.
type MisalignedSeriesError struct {
	A, B string
	// OnlyA and OnlyB list index values present in one series but not the other.
	OnlyA []float64
	OnlyB []float64
}

func (e *MisalignedSeriesError) Error() string {
	return fmt.Sprintf("series %q and %q are misaligned: %d index values only in %q, %d only in %q",
		e.A, e.B, len(e.OnlyA), e.A, len(e.OnlyB), e.B)
}

// DuplicateIndexError indicates an index value appears more than once.
type DuplicateIndexError struct {
	Name  string
	Index float64
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("series %q: duplicate index %s", e.Name, FormatIndex(e.Index))
}

// Series is a named, ordered sequence of numeric values keyed by an index (usually a year).
type Series struct {
	Name   string    `json:"name"`
	Index  []float64 `json:"index"`
	Values []float64 `json:"values"`
}

// New builds a Series from parallel index and value slices. The slices are copied.
func New(name string, index, values []float64) (Series, error) {
	if len(index) != len(values) {
		return Series{}, fmt.Errorf("series %q: %d index values for %d values", name, len(index), len(values))
	}
	seen := make(map[float64]struct{}, len(index))
	for _, ix := range index {
		if math.IsNaN(ix) {
			return Series{}, fmt.Errorf("series %q: NaN index", name)
		}
		if _, ok := seen[ix]; ok {
			return Series{}, &DuplicateIndexError{Name: name, Index: ix}
		}
		seen[ix] = struct{}{}
	}
	s := Series{
		Name:   name,
		Index:  append([]float64(nil), index...),
		Values: append([]float64(nil), values...),
	}
	return s, nil
}

// Range returns a series indexed 0..n-1, used when a source has no natural index.
func Range(name string, values []float64) Series {
	idx := make([]float64, len(values))
	for i := range idx {
		idx[i] = float64(i)
	}
	return Series{Name: name, Index: idx, Values: append([]float64(nil), values...)}
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Empty reports whether the series has no points.
func (s Series) Empty() bool { return len(s.Values) == 0 }

// Renamed returns a copy with a different name.
func (s Series) Renamed(name string) Series {
	out := s.Clone()
	out.Name = name
	return out
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	return Series{
		Name:   s.Name,
		Index:  append([]float64(nil), s.Index...),
		Values: append([]float64(nil), s.Values...),
	}
}

// Sorted returns a copy ordered by ascending index.
func (s Series) Sorted() Series {
	out := s.Clone()
	sort.Sort(byIndex(out))
	return out
}

// DropMissing returns a copy without NaN values.
func (s Series) DropMissing() Series {
	out := Series{Name: s.Name}
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		out.Index = append(out.Index, s.Index[i])
		out.Values = append(out.Values, v)
	}
	return out
}

// Between returns the points whose index lies in [lo, hi].
func (s Series) Between(lo, hi float64) Series {
	out := Series{Name: s.Name}
	for i, ix := range s.Index {
		if ix < lo || ix > hi {
			continue
		}
		out.Index = append(out.Index, ix)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// Lookup returns the value at index ix.
func (s Series) Lookup(ix float64) (float64, bool) {
	for i, v := range s.Index {
		if v == ix {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Align pairs the values of a and b by shared index, ordered by ascending index.
// Both series must carry exactly the same index set.
func Align(a, b Series) (index, xs, ys []float64, err error) {
	bm := make(map[float64]float64, len(b.Index))
	for i, ix := range b.Index {
		bm[ix] = b.Values[i]
	}
	am := make(map[float64]struct{}, len(a.Index))
	var onlyA, onlyB []float64
	for _, ix := range a.Index {
		am[ix] = struct{}{}
		if _, ok := bm[ix]; !ok {
			onlyA = append(onlyA, ix)
		}
	}
	for _, ix := range b.Index {
		if _, ok := am[ix]; !ok {
			onlyB = append(onlyB, ix)
		}
	}
	if len(onlyA) > 0 || len(onlyB) > 0 {
		return nil, nil, nil, &MisalignedSeriesError{A: a.Name, B: b.Name, OnlyA: onlyA, OnlyB: onlyB}
	}
	sa := a.Sorted()
	index = sa.Index
	xs = sa.Values
	ys = make([]float64, len(index))
	for i, ix := range index {
		ys[i] = bm[ix]
	}
	return index, xs, ys, nil
}

// FormatIndex prints whole-number indexes (years) without a fractional part.
func FormatIndex(ix float64) string {
	if ix == math.Trunc(ix) && math.Abs(ix) < 1e15 {
		return fmt.Sprintf("%d", int64(ix))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", ix), "0"), ".")
}

type byIndex Series

func (s byIndex) Len() int           { return len(s.Index) }
func (s byIndex) Less(i, j int) bool { return s.Index[i] < s.Index[j] }
func (s byIndex) Swap(i, j int) {
	s.Index[i], s.Index[j] = s.Index[j], s.Index[i]
	s.Values[i], s.Values[j] = s.Values[j], s.Values[i]
}
