package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/trendloom/internal/series"
)

// Keys returns the distinct values of a key column, in row order.
func (t *Table) Keys(keyColumn string) ([]string, error) {
	c, ok := t.Column(keyColumn)
	if !ok {
		return nil, &InvalidColumnError{Column: keyColumn, Reason: "not present in table", Suggestion: suggest(keyColumn, t.Names())}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, v := range c.Raw {
		if _, dup := seen[v]; dup || isMissing(v) {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// RowSeries reads a wide table (one row per category, one column per year) and
// returns the row whose keyColumn equals key as a Series indexed by the numeric headers.
func (t *Table) RowSeries(keyColumn, key string) (series.Series, error) {
	kc, ok := t.Column(keyColumn)
	if !ok {
		return series.Series{}, &InvalidColumnError{Column: keyColumn, Reason: "not present in table", Suggestion: suggest(keyColumn, t.Names())}
	}
	row := -1
	for i, v := range kc.Raw {
		if v == key {
			row = i
			break
		}
	}
	if row < 0 {
		keys, _ := t.Keys(keyColumn)
		return series.Series{}, &InvalidColumnError{
			Column:     key,
			Reason:     fmt.Sprintf("no row with %s=%q", keyColumn, key),
			Suggestion: suggest(key, keys),
		}
	}
	var idx, vals []float64
	for _, c := range t.Columns {
		if c.Name == keyColumn {
			continue
		}
		ix, err := strconv.ParseFloat(strings.TrimSpace(c.Name), 64)
		if err != nil {
			continue
		}
		if c.Kind != KindNumeric {
			return series.Series{}, &MalformedSourceError{
				Source: t.Name,
				Reason: fmt.Sprintf("column %q holds %s values", c.Name, c.Kind),
			}
		}
		idx = append(idx, ix)
		vals = append(vals, c.Nums[row])
	}
	if len(idx) == 0 {
		return series.Series{}, &MalformedSourceError{Source: t.Name, Reason: "no numeric header columns to index a row by"}
	}
	return newSeries(t.Name, key, idx, vals)
}

// RowsAsSeries returns every row of a wide table as a Series, keyed by keyColumn.
func (t *Table) RowsAsSeries(keyColumn string) ([]series.Series, error) {
	keys, err := t.Keys(keyColumn)
	if err != nil {
		return nil, err
	}
	out := make([]series.Series, 0, len(keys))
	for _, k := range keys {
		s, err := t.RowSeries(keyColumn, k)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ColumnSeries pairs a numeric or datetime index column with a numeric value column.
// Datetime indexes become fractional years. Rows missing either cell are skipped.
func (t *Table) ColumnSeries(indexColumn, valueColumn string) (series.Series, error) {
	ic, ok := t.Column(indexColumn)
	if !ok {
		return series.Series{}, &InvalidColumnError{Column: indexColumn, Reason: "not present in table", Suggestion: suggest(indexColumn, t.Names())}
	}
	vc, ok := t.Column(valueColumn)
	if !ok {
		return series.Series{}, &InvalidColumnError{Column: valueColumn, Reason: "not present in table", Suggestion: suggest(valueColumn, t.Names())}
	}
	if vc.Kind != KindNumeric {
		return series.Series{}, &InvalidColumnError{Column: valueColumn, Reason: "value column is " + string(vc.Kind) + ", not numeric"}
	}
	var idx, vals []float64
	for i := range vc.Raw {
		v := vc.Nums[i]
		if math.IsNaN(v) {
			continue
		}
		var ix float64
		switch ic.Kind {
		case KindNumeric:
			ix = ic.Nums[i]
			if math.IsNaN(ix) {
				continue
			}
		case KindDatetime:
			if ic.Times[i].IsZero() {
				continue
			}
			ix = FractionalYear(ic.Times[i])
		default:
			return series.Series{}, &InvalidColumnError{Column: indexColumn, Reason: "index column is text, not numeric or datetime"}
		}
		idx = append(idx, ix)
		vals = append(vals, v)
	}
	return newSeries(t.Name, valueColumn, idx, vals)
}

// Pairs holds the row-aligned (x, y) cells of two columns. Repeated x values
// are kept in row order. When x is a text column Labels holds its cells and X
// holds the position of each label among the column's distinct values.
type Pairs struct {
	XName, YName string
	X            []float64
	Y            []float64
	Labels       []string
	// Categories lists the distinct labels by position; empty for numeric x.
	Categories []string
}

// Categorical reports whether x came from a text column.
func (p Pairs) Categorical() bool { return p.Categories != nil }

// Pairs reads x and y row by row, skipping rows where either cell is missing.
// y must be numeric; x may be numeric, datetime (as fractional years) or text.
func (t *Table) Pairs(xColumn, yColumn string) (Pairs, error) {
	if err := Validate(t, xColumn, yColumn); err != nil {
		return Pairs{}, err
	}
	xc, _ := t.Column(xColumn)
	yc, _ := t.Column(yColumn)
	if yc.Kind != KindNumeric {
		return Pairs{}, &InvalidColumnError{Column: yColumn, Reason: "value column is " + string(yc.Kind) + ", not numeric"}
	}
	p := Pairs{XName: xColumn, YName: yColumn}
	pos := map[string]int{}
	if xc.Kind == KindText {
		// Positions cover every row so pairs of the same x column line up.
		p.Categories = []string{}
		for _, raw := range xc.Raw {
			label := strings.TrimSpace(raw)
			if _, ok := pos[label]; ok || isMissing(label) {
				continue
			}
			pos[label] = len(p.Categories)
			p.Categories = append(p.Categories, label)
		}
	}
	for i, v := range yc.Nums {
		if math.IsNaN(v) {
			continue
		}
		var x float64
		switch xc.Kind {
		case KindNumeric:
			x = xc.Nums[i]
			if math.IsNaN(x) {
				continue
			}
		case KindDatetime:
			if xc.Times[i].IsZero() {
				continue
			}
			x = FractionalYear(xc.Times[i])
		default:
			label := strings.TrimSpace(xc.Raw[i])
			if isMissing(label) {
				continue
			}
			x = float64(pos[label])
			p.Labels = append(p.Labels, label)
		}
		p.X = append(p.X, x)
		p.Y = append(p.Y, v)
	}
	if len(p.Y) == 0 {
		return p, series.ErrInsufficientData
	}
	return p, nil
}

// FractionalYear maps a time to year + elapsed fraction of that year.
func FractionalYear(ts time.Time) float64 {
	start := time.Date(ts.Year(), time.January, 1, 0, 0, 0, 0, ts.Location())
	end := start.AddDate(1, 0, 0)
	return float64(ts.Year()) + float64(ts.Sub(start))/float64(end.Sub(start))
}

func newSeries(source, name string, idx, vals []float64) (series.Series, error) {
	s, err := series.New(name, idx, vals)
	if err != nil {
		var dup *series.DuplicateIndexError
		if errors.As(err, &dup) {
			return series.Series{}, &MalformedSourceError{Source: source, Reason: dup.Error(), Err: err}
		}
		return series.Series{}, err
	}
	return s, nil
}

// Selection names the series to extract from a table: a row of a wide table
// (KeyColumn, Row) or an index/value column pair of a long one (X, Y).
type Selection struct {
	KeyColumn string
	Row       string
	X, Y      string
}

// Wide reports whether sel reads a row rather than a column pair. An empty
// selection reads a row when the table looks wide.
func (t *Table) Wide(sel Selection) (keyColumn string, ok bool) {
	if sel.KeyColumn != "" {
		return sel.KeyColumn, true
	}
	if sel.X != "" || sel.Y != "" {
		return "", false
	}
	k := t.WideKey()
	return k, k != ""
}

// WideKey returns the first text column when at least two numeric columns are
// headed by a year, or "" for a long table.
func (t *Table) WideKey() string {
	var key string
	years := 0
	for _, c := range t.Columns {
		if _, err := strconv.ParseFloat(strings.TrimSpace(c.Name), 64); err == nil && c.Kind == KindNumeric {
			years++
			continue
		}
		if key == "" && c.Kind == KindText {
			key = c.Name
		}
	}
	if years < 2 {
		return ""
	}
	return key
}

// DefaultAxes prefers a datetime index, then the first numeric column, and
// takes the next numeric column as values.
func (t *Table) DefaultAxes() (x, y string) {
	cl, _ := Classify(t)
	if len(cl.Temporal) > 0 {
		x = cl.Temporal[0]
	}
	for _, n := range cl.Numeric {
		switch {
		case x == "":
			x = n
		case y == "" && n != x:
			y = n
		}
	}
	return x, y
}

// Select returns the selected series sorted by index, with the unit of its
// value column when the header carried one. Empty fields fall back to the
// first row of a wide table or to DefaultAxes.
func (t *Table) Select(sel Selection) (s series.Series, unit string, err error) {
	if key, ok := t.Wide(sel); ok {
		row := sel.Row
		if row == "" {
			keys, err := t.Keys(key)
			if err != nil {
				return series.Series{}, "", err
			}
			if len(keys) == 0 {
				return series.Series{}, "", series.ErrInsufficientData
			}
			row = keys[0]
		}
		s, err := t.RowSeries(key, row)
		if err != nil {
			return series.Series{}, "", err
		}
		return s.DropMissing().Sorted(), "", nil
	}

	x, y := sel.X, sel.Y
	if x == "" || y == "" {
		dx, dy := t.DefaultAxes()
		if x == "" {
			x = dx
		}
		if y == "" {
			y = dy
		}
	}
	if err := Validate(t, x, y); err != nil {
		return series.Series{}, "", err
	}
	if c, ok := t.Column(y); ok {
		unit = c.Unit
	}
	s, err = t.ColumnSeries(x, y)
	if err != nil {
		return series.Series{}, "", err
	}
	return s.Sorted(), unit, nil
}
