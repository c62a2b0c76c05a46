// Package table loads delimited text and spreadsheet sources into typed columns
// and selects the columns a dashboard pass works with.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindDatetime Kind = "datetime"
	KindText     Kind = "text"
)

// Options controls how a source is read.
type Options struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selects an xlsx sheet by name; SheetIndex is 1-based and used when Sheet is empty.
	Sheet      string
	SheetIndex int
	// Unit normalization: convert values to target units using simple mappings.
	// Column names keep the header text; Column.Unit reports the converted unit.
	UnitNormalize bool
	UnitTargets   map[string]string
}

// DefaultOptions returns reasonable defaults for loading.
func DefaultOptions() Options {
	return Options{
		SheetIndex: 1,
		UnitTargets: map[string]string{
			"°F": "°C",
		},
	}
}

// Column is a named sequence of cells with a single inferred kind.
type Column struct {
	Name string
	Unit string
	Kind Kind
	Raw  []string
	// Nums holds parsed values for numeric columns; NaN marks a missing cell.
	Nums []float64
	// Times holds parsed values for datetime columns; the zero time marks a missing cell.
	Times []time.Time
}

// Missing counts empty cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Raw {
		if isMissing(v) {
			n++
		}
	}
	return n
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	Name      string
	Delimiter rune
	Columns   []Column
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Raw)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the raw cells of row i.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Raw[i]
	}
	return out
}

// Clone returns a deep copy that shares no slices with t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Name: t.Name, Delimiter: t.Delimiter, Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{
			Name: c.Name,
			Unit: c.Unit,
			Kind: c.Kind,
			Raw:  append([]string(nil), c.Raw...),
		}
		if c.Nums != nil {
			out.Columns[i].Nums = append([]float64(nil), c.Nums...)
		}
		if c.Times != nil {
			out.Columns[i].Times = append([]time.Time(nil), c.Times...)
		}
	}
	return out
}

// ConvertDatetime reparses a column as datetime. Every non-missing cell must parse.
func (t *Table) ConvertDatetime(name string) error {
	c, ok := t.Column(name)
	if !ok {
		return &InvalidColumnError{Column: name, Reason: "not present in table", Suggestion: suggest(name, t.Names())}
	}
	if c.Kind == KindDatetime {
		return nil
	}
	times := make([]time.Time, len(c.Raw))
	for i, v := range c.Raw {
		v = strings.TrimSpace(v)
		if isMissing(v) {
			continue
		}
		ts, ok := parseTimeMaybe(v)
		if !ok {
			return &InvalidColumnError{Column: name, Reason: fmt.Sprintf("value %q is not a date", v)}
		}
		times[i] = ts
	}
	c.Kind = KindDatetime
	c.Times = times
	c.Nums = nil
	return nil
}

// Load reads a table from a file path. .xlsx files are read as workbooks; anything
// else is treated as delimited text.
func Load(path string, opt Options) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Source: path, Err: err}
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return loadXLSX(path, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return Read(f, filepath.Base(path), opt)
}

// Read parses delimited text from r. name identifies the source in errors and reports.
func Read(r io.Reader, name string, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MalformedSourceError{Source: name, Reason: "source is empty"}
		}
		return nil, &MalformedSourceError{Source: name, Line: 1, Reason: "unreadable header", Err: err}
	}
	header = append([]string(nil), header...)
	if len(header) == 1 {
		for _, alt := range []rune{',', ';', '\t'} {
			if alt != delim && strings.ContainsRune(header[0], alt) {
				return nil, &MalformedSourceError{
					Source: name,
					Line:   1,
					Reason: fmt.Sprintf("delimiter %q yields a single column but the header contains %q", delim, alt),
				}
			}
		}
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &MalformedSourceError{Source: name, Line: line, Reason: "unreadable row", Err: err}
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &MalformedSourceError{
				Source: name,
				Line:   line,
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(rec), len(header)),
			}
		}
		records = append(records, append([]string(nil), rec...))
	}
	t, err := build(name, header, records, opt)
	if err != nil {
		return nil, err
	}
	t.Delimiter = delim
	return t, nil
}

// build infers column kinds from header and rows, which must already be rectangular.
func build(name string, header []string, records [][]string, opt Options) (*Table, error) {
	t := &Table{Name: name, Columns: make([]Column, len(header))}
	seen := map[string]struct{}{}
	for j, h := range header {
		col := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(h), "\ufeff"))
		if col == "" {
			col = fmt.Sprintf("column_%d", j+1)
		}
		if _, dup := seen[col]; dup {
			return nil, &MalformedSourceError{Source: name, Line: 1, Reason: fmt.Sprintf("duplicate column name %q", col)}
		}
		seen[col] = struct{}{}
		_, unit := splitUnits(col)
		raw := make([]string, len(records))
		for i, rec := range records {
			raw[i] = strings.TrimSpace(rec[j])
		}
		t.Columns[j] = inferColumn(col, unit, raw, opt)
	}
	return t, nil
}

func inferColumn(name, unit string, raw []string, opt Options) Column {
	c := Column{Name: name, Unit: unit, Raw: raw}
	nums := make([]float64, len(raw))
	present := 0
	numeric := true
	for i, v := range raw {
		if isMissing(v) {
			nums[i] = math.NaN()
			continue
		}
		present++
		if strings.Contains(v, "%") && c.Unit == "" {
			c.Unit = "%"
		}
		x, ok := parseNumeric(v, opt)
		if !ok {
			numeric = false
			break
		}
		nums[i] = x
	}
	if numeric && present > 0 {
		c.Kind = KindNumeric
		c.Nums = nums
		if opt.UnitNormalize && c.Unit != "" {
			if _, to, ok := normalizeUnit(0, c.Unit, opt); ok {
				for i, x := range nums {
					if !math.IsNaN(x) {
						nums[i], _, _ = normalizeUnit(x, c.Unit, opt)
					}
				}
				c.Unit = to
			}
		}
		return c
	}
	if present > 0 {
		times := make([]time.Time, len(raw))
		dt := true
		for i, v := range raw {
			if isMissing(v) {
				continue
			}
			ts, ok := parseTimeMaybe(v)
			if !ok {
				dt = false
				break
			}
			times[i] = ts
		}
		if dt {
			c.Kind = KindDatetime
			c.Times = times
			return c
		}
	}
	c.Kind = KindText
	return c
}

func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
		"2006-01",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func normalizeUnit(x float64, unit string, opt Options) (float64, string, bool) {
	if opt.UnitTargets == nil {
		return x, unit, false
	}
	target, ok := opt.UnitTargets[unit]
	if !ok {
		return x, unit, false
	}
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, target, true
	case "ug/L>mg/L":
		return x / 1000, target, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, target, true
	case "kt>Mt":
		return x / 1000, target, true
	default:
		return x, unit, false
	}
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Temp (°C)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Emissions [Mt]
	{regexp.MustCompile(`^(.*?)[_\s-]+(°[CF]|Mt|kt|ppm|ppb|%)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
