package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

// Table is a small rectangular block of already formatted cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// FigureRef links a rendered chart file into a document.
type FigureRef struct {
	Title string
	Path  string
}

// Section is one titled block of a document. Warnings explain what could not be
// shown; the rest of the section still renders.
type Section struct {
	Title    string
	Text     string
	Metrics  []Metric
	Table    *Table
	Figures  []FigureRef
	Warnings []string
}

// Warn appends the user-facing message for err.
func (s *Section) Warn(err error) {
	if err != nil {
		s.Warnings = append(s.Warnings, Warning(err))
	}
}

// Document is a complete dashboard report.
type Document struct {
	Title     string
	Source    string
	Rows      int
	Generated time.Time
	Sections  []Section
}

// Warnings returns every section warning prefixed by its section title.
func (d *Document) Warnings() []string {
	var out []string
	for _, s := range d.Sections {
		for _, w := range s.Warnings {
			out = append(out, s.Title+": "+w)
		}
	}
	return out
}

// Markdown renders the document.
func (d *Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# " + d.Title + "\n\n")
	var meta []string
	if d.Source != "" {
		meta = append(meta, fmt.Sprintf("Source: `%s`", d.Source))
	}
	if d.Rows > 0 {
		meta = append(meta, fmt.Sprintf("%s rows", humanize.Comma(int64(d.Rows))))
	}
	if !d.Generated.IsZero() {
		meta = append(meta, "generated "+d.Generated.UTC().Format(time.RFC3339))
	}
	if len(meta) > 0 {
		b.WriteString("_" + strings.Join(meta, " · ") + "_\n\n")
	}
	for _, s := range d.Sections {
		b.WriteString("## " + s.Title + "\n\n")
		for _, w := range s.Warnings {
			b.WriteString("> ⚠ " + w + "\n")
		}
		if len(s.Warnings) > 0 {
			b.WriteString("\n")
		}
		if s.Text != "" {
			b.WriteString(strings.TrimSpace(s.Text) + "\n\n")
		}
		if len(s.Metrics) > 0 {
			b.WriteString(metricsMarkdown(s.Metrics))
			b.WriteString("\n")
		}
		if s.Table != nil && len(s.Table.Rows) > 0 {
			b.WriteString(tableMarkdown(s.Table))
			b.WriteString("\n")
		}
		for _, f := range s.Figures {
			b.WriteString(fmt.Sprintf("![%s](%s)\n\n", f.Title, f.Path))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func metricsMarkdown(ms []Metric) string {
	t := &Table{Headers: []string{"Metric", "Value", "Note"}}
	for _, m := range ms {
		t.Rows = append(t.Rows, []string{m.Label, m.Value, m.Note})
	}
	return tableMarkdown(t)
}

func tableMarkdown(t *Table) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(t.Headers))
		copy(cells, row)
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "\n", " "), "|", "\\|")
	}
	return out
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Terminal renders metrics as a bordered table for interactive output.
func Terminal(ms []Metric) string {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{m.Label, m.Value, m.Note})
	}
	return TerminalTable(&Table{Headers: []string{"Metric", "Value", "Note"}, Rows: rows})
}

// TerminalTable renders t with lipgloss borders.
func TerminalTable(t *Table) string {
	lt := table.New().
		Border(lipgloss.NormalBorder()).
		BorderHeader(true).
		BorderRow(false).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return lt.Render()
}

// Pretty renders Markdown for a terminal using a glamour standard style
// ("dark", "light", "notty", ...). Width 0 disables wrapping.
func Pretty(md, style string, width int) (string, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
