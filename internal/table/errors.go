package table

import (
	"errors"
	"fmt"
)

// ErrNoNumericColumns indicates a table has no column usable as a measurement.
var ErrNoNumericColumns = errors.New("no numeric columns")

// SourceNotFoundError indicates the requested source does not exist.
type SourceNotFoundError struct {
	Source string
	Err    error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source not found: %s", e.Source)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// MalformedSourceError indicates the source could not be read as a consistent table.
// Line is 1-based and zero when the problem is not tied to a row.
type MalformedSourceError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed source %s (line %d): %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed source %s: %s", e.Source, e.Reason)
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// InvalidColumnError indicates a column selection that the table cannot satisfy.
type InvalidColumnError struct {
	Column     string
	Reason     string
	Suggestion string
}

func (e *InvalidColumnError) Error() string {
	msg := fmt.Sprintf("invalid column %q: %s", e.Column, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}
