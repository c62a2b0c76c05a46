// Package chart turns series and tables into figure descriptions that can be
// encoded as JSON for an external widget host or rendered to PNG/SVG/PDF.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/series"
)

// Kind is the chart type of a figure.
type Kind string

const (
	KindLine           Kind = "line"
	KindScatter        Kind = "scatter"
	KindBar            Kind = "bar"
	KindHistogram      Kind = "histogram"
	KindDualAxis       Kind = "dual-axis"
	KindSmallMultiples Kind = "small-multiples"
	KindHeatmap        Kind = "heatmap"
)

// Kinds lists every supported chart kind.
func Kinds() []Kind {
	return []Kind{KindLine, KindScatter, KindBar, KindHistogram, KindDualAxis, KindSmallMultiples, KindHeatmap}
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if string(k) == want {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown chart kind %q (want one of %s)", s, strings.Join(names, ", "))
}

// Trace styles.
const (
	StyleLine    = "line"
	StyleMarkers = "markers"
	StyleTrend   = "trend"
	StyleBar     = "bar"
)

// Axis names for dual-axis figures.
const (
	AxisLeft  = "y"
	AxisRight = "y2"
)

// Trace is one drawn data set.
type Trace struct {
	Name   string    `json:"name"`
	Style  string    `json:"style"`
	Axis   string    `json:"axis,omitempty"`
	X      []float64 `json:"x,omitempty"`
	Y      []float64 `json:"y"`
	Labels []string  `json:"labels,omitempty"`
}

// Panel is one cell of a small-multiples figure.
type Panel struct {
	Title  string  `json:"title"`
	YLabel string  `json:"y_label,omitempty"`
	Traces []Trace `json:"traces"`
}

// Grid is the labelled matrix behind a heatmap. NaN cells encode as null.
type Grid struct {
	Rows []string    `json:"rows"`
	Cols []string    `json:"cols"`
	Z    [][]float64 `json:"-"`
}

// MarshalJSON writes Z with NaN cells as null.
func (g Grid) MarshalJSON() ([]byte, error) {
	z := make([][]*float64, len(g.Z))
	for i, row := range g.Z {
		z[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			z[i][j] = &v
		}
	}
	type plain Grid
	return json.Marshal(struct {
		plain
		Z [][]*float64 `json:"z"`
	}{plain(g), z})
}

// Figure is a renderer-independent chart description.
type Figure struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Title   string  `json:"title"`
	XLabel  string  `json:"x_label,omitempty"`
	YLabel  string  `json:"y_label,omitempty"`
	Y2Label string  `json:"y2_label,omitempty"`
	Traces  []Trace `json:"traces,omitempty"`
	Panels  []Panel `json:"panels,omitempty"`
	// Columns is the number of panels per row in a small-multiples figure.
	Columns int   `json:"columns,omitempty"`
	Grid    *Grid `json:"grid,omitempty"`
	Bins    int   `json:"bins,omitempty"`
	// XCategories names the x positions 0..n-1 when x is a text column.
	XCategories []string `json:"x_categories,omitempty"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode returns the indented JSON description of fig.
func Encode(fig *Figure) ([]byte, error) {
	b, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode figure %s: %w", fig.ID, err)
	}
	return b, nil
}

// Decode parses a JSON figure description.
func Decode(data []byte) (*Figure, error) {
	var fig struct {
		Figure
		Grid *struct {
			Rows []string     `json:"rows"`
			Cols []string     `json:"cols"`
			Z    [][]*float64 `json:"z"`
		} `json:"grid,omitempty"`
	}
	if err := json.Unmarshal(data, &fig); err != nil {
		return nil, fmt.Errorf("decode figure: %w", err)
	}
	out := fig.Figure
	if fig.Grid != nil {
		g := &Grid{Rows: fig.Grid.Rows, Cols: fig.Grid.Cols, Z: make([][]float64, len(fig.Grid.Z))}
		for i, row := range fig.Grid.Z {
			g.Z[i] = make([]float64, len(row))
			for j, v := range row {
				if v == nil {
					g.Z[i][j] = math.NaN()
				} else {
					g.Z[i][j] = *v
				}
			}
		}
		out.Grid = g
	}
	return &out, nil
}

func newFigure(kind Kind, title string) *Figure {
	return &Figure{ID: uuid.NewString(), Kind: kind, Title: title}
}

func traceOf(s series.Series, style string) Trace {
	s = s.Sorted()
	return Trace{Name: s.Name, Style: style, X: s.Index, Y: s.Values}
}

// Line draws each series as a line against its index.
func Line(title, xLabel string, ss ...series.Series) *Figure {
	fig := newFigure(KindLine, title)
	fig.XLabel = xLabel
	if len(ss) == 1 {
		fig.YLabel = ss[0].Name
	}
	for _, s := range ss {
		fig.Traces = append(fig.Traces, traceOf(s, StyleLine))
	}
	return fig
}

// TrendPoints is the number of samples drawn along a fitted trendline.
const TrendPoints = 100

// ScatterTrend plots y against x, paired by index, with the least squares line.
// When the fit cannot be computed the figure still holds the points and the
// error explains why the trendline is missing.
func ScatterTrend(title string, x, y series.Series) (*Figure, analysis.Regression, error) {
	_, xs, ys, err := series.Align(x, y)
	if err != nil {
		return nil, analysis.Regression{}, err
	}
	return scatter(title, x.Name, y.Name, xs, ys)
}

func scatter(title, xName, yName string, xs, ys []float64) (*Figure, analysis.Regression, error) {
	fig := newFigure(KindScatter, title)
	fig.XLabel, fig.YLabel = xName, yName
	fig.Traces = append(fig.Traces, Trace{Name: yName, Style: StyleMarkers, X: xs, Y: ys})

	reg, err := analysis.Fit(xName, yName, xs, ys)
	if err != nil {
		return fig, reg, err
	}
	lo, hi := bounds(xs)
	tx, ty := analysis.Trendline(reg, lo, hi, TrendPoints)
	fig.Traces = append(fig.Traces, Trace{
		Name:  fmt.Sprintf("trend (r=%.3f)", reg.Correlation),
		Style: StyleTrend,
		X:     tx,
		Y:     ty,
	})
	return fig, reg, nil
}

// DualAxis draws left and right against a shared index with independent y axes.
func DualAxis(title, xLabel string, left, right series.Series) *Figure {
	fig := newFigure(KindDualAxis, title)
	fig.XLabel = xLabel
	fig.YLabel, fig.Y2Label = left.Name, right.Name
	l := traceOf(left, StyleLine)
	l.Axis = AxisLeft
	r := traceOf(right, StyleLine)
	r.Axis = AxisRight
	fig.Traces = []Trace{l, r}
	return fig
}

// SmallMultiples gives each series its own panel, cols panels per row.
func SmallMultiples(title, xLabel string, cols int, ss ...series.Series) *Figure {
	if cols <= 0 {
		cols = 2
	}
	fig := newFigure(KindSmallMultiples, title)
	fig.XLabel = xLabel
	fig.Columns = cols
	for _, s := range ss {
		fig.Panels = append(fig.Panels, Panel{
			Title:  s.Name,
			YLabel: s.Name,
			Traces: []Trace{traceOf(s, StyleLine)},
		})
	}
	return fig
}

// Heatmap draws a correlation matrix.
func Heatmap(title string, m *analysis.CorrMatrix) *Figure {
	fig := newFigure(KindHeatmap, title)
	g := &Grid{
		Rows: append([]string(nil), m.Columns...),
		Cols: append([]string(nil), m.Columns...),
		Z:    make([][]float64, len(m.Values)),
	}
	for i, row := range m.Values {
		g.Z[i] = append([]float64(nil), row...)
	}
	fig.Grid = g
	return fig
}

// Bar draws one bar per label.
func Bar(title, yLabel string, labels []string, values []float64) *Figure {
	fig := newFigure(KindBar, title)
	fig.YLabel = yLabel
	fig.Traces = []Trace{{
		Name:   yLabel,
		Style:  StyleBar,
		Y:      append([]float64(nil), values...),
		Labels: append([]string(nil), labels...),
	}}
	return fig
}

// DefaultBins is the histogram bin count used when none is given.
const DefaultBins = 30

// Histogram bins the values of s.
func Histogram(title string, s series.Series, bins int) *Figure {
	if bins <= 0 {
		bins = DefaultBins
	}
	fig := newFigure(KindHistogram, title)
	fig.XLabel = s.Name
	fig.YLabel = "count"
	fig.Bins = bins
	fig.Traces = []Trace{{Name: s.Name, Style: StyleBar, Y: s.DropMissing().Values}}
	return fig
}

func bounds(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
