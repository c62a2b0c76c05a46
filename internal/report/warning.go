package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/scenario"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

// Recoverable reports whether err leaves the loaded table usable: a bad column
// choice or a result that cannot be computed. Load failures and invalid
// scenario parameters are not recoverable.
func Recoverable(err error) bool {
	var (
		ic  *table.InvalidColumnError
		mis *series.MisalignedSeriesError
		dup *series.DuplicateIndexError
	)
	switch {
	case err == nil:
		return false
	case errors.Is(err, table.ErrNoNumericColumns),
		errors.Is(err, series.ErrInsufficientData),
		errors.Is(err, analysis.ErrDivisionByZero),
		errors.As(err, &ic),
		errors.As(err, &mis),
		errors.As(err, &dup):
		return true
	}
	return false
}

// Warning turns an error into a message fit for an end user. Errors outside
// the known taxonomy fall back to their own text.
func Warning(err error) string {
	if err == nil {
		return ""
	}
	var (
		nf  *table.SourceNotFoundError
		ms  *table.MalformedSourceError
		ic  *table.InvalidColumnError
		mis *series.MisalignedSeriesError
		dup *series.DuplicateIndexError
		ip  *scenario.InvalidParameterError
	)
	switch {
	case errors.As(err, &nf):
		return fmt.Sprintf("Data file %q was not found. Check the path and try again.", nf.Source)
	case errors.As(err, &ms):
		msg := fmt.Sprintf("Data file %q could not be read as a table: %s.", ms.Source, ms.Reason)
		if ms.Line > 0 {
			msg = fmt.Sprintf("Data file %q could not be read as a table (line %d): %s.", ms.Source, ms.Line, ms.Reason)
		}
		if strings.Contains(ms.Reason, "delimiter") {
			msg += " Try a different --delimiter."
		}
		return msg
	case errors.Is(err, table.ErrNoNumericColumns):
		return "The table has no numeric columns to chart."
	case errors.As(err, &ic):
		msg := fmt.Sprintf("Column %q cannot be used: %s.", ic.Column, ic.Reason)
		if ic.Suggestion != "" {
			msg += fmt.Sprintf(" Did you mean %q?", ic.Suggestion)
		}
		return msg
	case errors.Is(err, series.ErrInsufficientData):
		return "Not enough data points to compute this result (need at least two)."
	case errors.As(err, &mis):
		return fmt.Sprintf("Series %q and %q cover different years and cannot be paired.", mis.A, mis.B)
	case errors.As(err, &dup):
		return fmt.Sprintf("Series %q repeats the index %s.", dup.Name, series.FormatIndex(dup.Index))
	case errors.Is(err, analysis.ErrDivisionByZero):
		return "The result is undefined because it would divide by zero (a zero starting value or a constant series)."
	case errors.As(err, &ip):
		return fmt.Sprintf("Scenario parameter %s is invalid: %s.", ip.Name, ip.Reason)
	}
	return err.Error()
}
