package table

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Classes lists the column names a caller may bind to chart axes.
type Classes struct {
	// Numeric holds the measurement candidates, in table order.
	Numeric []string
	// All holds every column, in table order.
	All []string
	// Temporal holds datetime columns, in table order.
	Temporal []string
}

// Classify enumerates candidate columns by type. When no numeric column exists it
// returns the classes together with ErrNoNumericColumns.
func Classify(t *Table) (Classes, error) {
	var cl Classes
	for _, c := range t.Columns {
		cl.All = append(cl.All, c.Name)
		switch c.Kind {
		case KindNumeric:
			cl.Numeric = append(cl.Numeric, c.Name)
		case KindDatetime:
			cl.Temporal = append(cl.Temporal, c.Name)
		}
	}
	if len(cl.Numeric) == 0 {
		return cl, ErrNoNumericColumns
	}
	return cl, nil
}

// Validate checks that x names any column and y names a numeric column of t.
func Validate(t *Table, x, y string) error {
	names := t.Names()
	if strings.TrimSpace(x) == "" {
		return &InvalidColumnError{Column: x, Reason: "x column not selected"}
	}
	if _, ok := t.Column(x); !ok {
		return &InvalidColumnError{Column: x, Reason: "not present in table", Suggestion: suggest(x, names)}
	}
	if strings.TrimSpace(y) == "" {
		return &InvalidColumnError{Column: y, Reason: "y column not selected"}
	}
	c, ok := t.Column(y)
	if !ok {
		return &InvalidColumnError{Column: y, Reason: "not present in table", Suggestion: suggest(y, names)}
	}
	if c.Kind != KindNumeric {
		return &InvalidColumnError{Column: y, Reason: "y column is " + string(c.Kind) + ", not numeric"}
	}
	return nil
}

// suggest returns the closest candidate by edit distance, or "" when nothing is close.
func suggest(name string, candidates []string) string {
	best := ""
	bestDist := -1
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return ""
	}
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(want, strings.ToLower(c))
		// "Temp" should find "Temp (°C)".
		if base, unit := splitUnits(c); unit != "" {
			d = min(d, levenshtein.ComputeDistance(want, strings.ToLower(base)))
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len(want) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
