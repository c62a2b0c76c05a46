package chart

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

// Binding maps table columns onto chart roles.
type Binding struct {
	X string
	Y string
	// Y2 is the right-hand column of a dual-axis chart.
	Y2 string
	// Ys lists the panels of a small-multiples chart; empty means every numeric column but X.
	Ys   []string
	Bins int
}

// FromTable builds a figure of the given kind from columns of t.
func FromTable(t *table.Table, kind Kind, b Binding) (*Figure, error) {
	title := t.Name
	switch kind {
	case KindLine:
		p, err := t.Pairs(b.X, b.Y)
		if err != nil {
			return nil, err
		}
		fig := newFigure(KindLine, fmt.Sprintf("%s over %s", b.Y, b.X))
		fig.XLabel, fig.YLabel = b.X, b.Y
		fig.XCategories = p.Categories
		fig.Traces = []Trace{pairTrace(p, StyleLine)}
		return fig, nil

	case KindScatter:
		p, err := t.Pairs(b.X, b.Y)
		if err != nil {
			return nil, err
		}
		if p.Categorical() {
			return nil, &table.InvalidColumnError{Column: b.X, Reason: "x column is text; a scatter needs numeric or datetime x"}
		}
		// A scatter without a trendline is still a usable figure.
		fig, _, _ := scatter(fmt.Sprintf("%s vs %s", b.Y, b.X), b.X, b.Y, p.X, p.Y)
		return fig, nil

	case KindBar:
		if err := table.Validate(t, b.X, b.Y); err != nil {
			return nil, err
		}
		xc, _ := t.Column(b.X)
		yc, _ := t.Column(b.Y)
		var labels []string
		var values []float64
		for i, v := range yc.Nums {
			if math.IsNaN(v) {
				continue
			}
			labels = append(labels, xc.Raw[i])
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, series.ErrInsufficientData
		}
		return Bar(fmt.Sprintf("%s by %s", b.Y, b.X), b.Y, labels, values), nil

	case KindHistogram:
		yc, err := numericColumn(t, b.Y)
		if err != nil {
			return nil, err
		}
		s := series.Range(b.Y, yc.Nums).DropMissing()
		if s.Empty() {
			return nil, series.ErrInsufficientData
		}
		return Histogram(fmt.Sprintf("Distribution of %s", b.Y), s, b.Bins), nil

	case KindDualAxis:
		left, err := t.Pairs(b.X, b.Y)
		if err != nil {
			return nil, err
		}
		right, err := t.Pairs(b.X, b.Y2)
		if err != nil {
			return nil, err
		}
		fig := newFigure(KindDualAxis, fmt.Sprintf("%s and %s", b.Y, b.Y2))
		fig.XLabel = b.X
		fig.YLabel, fig.Y2Label = b.Y, b.Y2
		fig.XCategories = left.Categories
		l, r := pairTrace(left, StyleLine), pairTrace(right, StyleLine)
		l.Axis, r.Axis = AxisLeft, AxisRight
		fig.Traces = []Trace{l, r}
		return fig, nil

	case KindSmallMultiples:
		names := b.Ys
		if len(names) == 0 {
			cl, err := table.Classify(t)
			if err != nil {
				return nil, err
			}
			for _, n := range cl.Numeric {
				if n != b.X {
					names = append(names, n)
				}
			}
		}
		if len(names) == 0 {
			return nil, table.ErrNoNumericColumns
		}
		fig := newFigure(KindSmallMultiples, title)
		fig.XLabel = b.X
		fig.Columns = 2
		for _, n := range names {
			p, err := t.Pairs(b.X, n)
			if err != nil {
				return nil, err
			}
			fig.XCategories = p.Categories
			fig.Panels = append(fig.Panels, Panel{Title: n, YLabel: n, Traces: []Trace{pairTrace(p, StyleLine)}})
		}
		return fig, nil

	case KindHeatmap:
		cl, err := table.Classify(t)
		if err != nil {
			return nil, err
		}
		ss := make([]series.Series, 0, len(cl.Numeric))
		for _, n := range cl.Numeric {
			c, _ := t.Column(n)
			ss = append(ss, series.Range(n, c.Nums))
		}
		m, err := analysis.Matrix(ss...)
		if err != nil {
			return nil, err
		}
		return Heatmap(fmt.Sprintf("Correlations in %s", title), m), nil
	}
	return nil, fmt.Errorf("unknown chart kind %q", kind)
}

// pairTrace orders a line trace by x, keeping repeated x values in row order.
func pairTrace(p table.Pairs, style string) Trace {
	order := make([]int, len(p.X))
	for i := range order {
		order[i] = i
	}
	if style == StyleLine {
		sort.SliceStable(order, func(i, j int) bool { return p.X[order[i]] < p.X[order[j]] })
	}
	tr := Trace{Name: p.YName, Style: style, X: make([]float64, len(order)), Y: make([]float64, len(order))}
	for k, i := range order {
		tr.X[k], tr.Y[k] = p.X[i], p.Y[i]
		if p.Categorical() {
			tr.Labels = append(tr.Labels, p.Labels[i])
		}
	}
	return tr
}

func numericColumn(t *table.Table, name string) (*table.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		// Validate against itself to get the suggestion.
		return nil, table.Validate(t, name, name)
	}
	if c.Kind != table.KindNumeric {
		return nil, &table.InvalidColumnError{Column: name, Reason: "column is " + string(c.Kind) + ", not numeric"}
	}
	return c, nil
}
