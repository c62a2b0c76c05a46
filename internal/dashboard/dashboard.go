// Package dashboard runs one render pass: it loads a table, derives the
// indicators, projects the scenario and assembles figures plus a Markdown report.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/scenario"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
	"github.com/KaramelBytes/trendloom/internal/utils"
)

// ReportName is the file name of the Markdown report inside the output directory.
const ReportName = "dashboard.md"

// Request selects the source and the columns of one dashboard.
type Request struct {
	// Source is a path, or the display name of Data when Data is set.
	Source string
	Data   []byte
	Load   table.Options

	// Selection picks the baseline series; see table.Table.Select.
	table.Selection

	Scenario   scenario.Parameters
	Indicators []scenario.Indicator

	// OutDir receives the report and rendered charts; empty renders nothing to disk.
	OutDir   string
	Format   string
	Size     chart.Size
	Bins     int
	Decimals int
	Title    string
}

// Artifact is a figure and, once rendered, the file it was written to.
type Artifact struct {
	Figure *chart.Figure
	Path   string
}

// Result is everything one pass produced. Summary and Regression are nil when
// they could not be computed; the reason is in the document warnings.
type Result struct {
	Table      *table.Table
	Baseline   series.Series
	Projected  series.Series
	Indicators []series.Series
	Summary    *analysis.Summary
	Regression *analysis.Regression
	Figures    []Artifact
	Document   *report.Document
	ReportPath string
}

// Runner holds the collaborators shared by passes.
type Runner struct {
	cache *table.Cache
	log   *zap.Logger
	now   func() time.Time
}

// New returns a Runner. A nil cache gets a private one; a nil logger logs nothing.
func New(cache *table.Cache, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cache == nil {
		cache = table.NewCache(log)
	}
	return &Runner{cache: cache, log: log, now: time.Now}
}

// Run executes one pass. Only a load failure aborts and returns an error;
// later failures become warnings on the section they affect.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	log := r.log.With(zap.String("source", req.Source))
	start := r.now()

	t, err := r.load(req)
	if err != nil {
		log.Warn("load failed", zap.Error(err))
		return nil, err
	}
	log.Debug("loaded", zap.Int("rows", t.NumRows()), zap.Int("columns", len(t.Columns)))

	title := req.Title
	if title == "" {
		title = "Trend dashboard: " + filepath.Base(t.Name)
	}
	res := &Result{
		Table: t,
		Document: &report.Document{
			Title:     title,
			Source:    req.Source,
			Rows:      t.NumRows(),
			Generated: start,
		},
	}
	p := &pass{Runner: r, req: req, res: res, log: log}
	for _, stage := range []struct {
		name string
		fn   func() report.Section
	}{
		{"columns", p.columns},
		{"summary", p.summary},
		{"scenario", p.scenario},
		{"indicators", p.indicators},
		{"overview", p.overview},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec := stage.fn()
		if len(sec.Warnings) > 0 {
			log.Info("stage degraded", zap.String("stage", stage.name), zap.Strings("warnings", sec.Warnings))
		} else {
			log.Debug("stage done", zap.String("stage", stage.name))
		}
		res.Document.Sections = append(res.Document.Sections, sec)
	}

	if err := r.write(req, res); err != nil {
		return res, err
	}
	log.Info("dashboard ready",
		zap.Int("figures", len(res.Figures)),
		zap.Int("warnings", len(res.Document.Warnings())),
		zap.Duration("elapsed", r.now().Sub(start)))
	return res, nil
}

func (r *Runner) load(req Request) (*table.Table, error) {
	if req.Data != nil {
		return r.cache.Read(req.Source, req.Data, req.Load)
	}
	return r.cache.Load(req.Source, req.Load)
}

// pass carries the state of one Run between stages.
type pass struct {
	*Runner
	req  Request
	res  *Result
	log  *zap.Logger
	// unit of the baseline values, when the header carried one
	unit string
}

func (p *pass) decimals() int {
	if p.req.Decimals <= 0 {
		return 3
	}
	return p.req.Decimals
}

func (p *pass) columns() report.Section {
	sec := report.Section{Title: "Columns"}
	t := p.res.Table
	if _, err := table.Classify(t); err != nil {
		sec.Warn(err)
	}
	tb := &report.Table{Headers: []string{"Column", "Kind", "Unit", "Missing"}}
	for _, c := range t.Columns {
		tb.Rows = append(tb.Rows, []string{c.Name, string(c.Kind), c.Unit, strconv.Itoa(c.Missing())})
	}
	sec.Table = tb

	base, unit, err := t.Select(p.req.Selection)
	if err != nil {
		sec.Warn(err)
		return sec
	}
	p.res.Baseline, p.unit = base, unit
	sec.Text = fmt.Sprintf("Baseline series: **%s** (%d points, %s to %s).",
		base.Name, base.Len(), series.FormatIndex(base.Index[0]), series.FormatIndex(base.Index[base.Len()-1]))
	return sec
}

func (p *pass) summary() report.Section {
	sec := report.Section{Title: "Summary"}
	base := p.res.Baseline
	if base.Empty() {
		sec.Warn(series.ErrInsufficientData)
		return sec
	}
	s, err := analysis.Summarize(base)
	switch {
	case err == nil, errors.Is(err, analysis.ErrDivisionByZero):
		p.res.Summary = &s
		sec.Metrics = report.FormatSummary(s, p.unit, p.decimals())
		sec.Warn(err)
	default:
		sec.Warn(err)
	}
	sec.Metrics = append(sec.Metrics, report.FormatStats(analysis.Describe(base.Values), p.decimals())...)
	p.attach(&sec, chart.Line(base.Name+" over time", "year", base))
	return sec
}

func (p *pass) scenario() report.Section {
	sec := report.Section{Title: "Scenario projection"}
	base := p.res.Baseline
	if base.Empty() {
		sec.Warn(series.ErrInsufficientData)
		return sec
	}
	projected, err := scenario.Project(base, p.req.Scenario)
	if err != nil {
		sec.Warn(err)
		return sec
	}
	p.res.Projected = projected
	sec.Text = fmt.Sprintf("%s derived from %s with offset %s, sensitivity %s and noise %s (seed %d).",
		projected.Name, base.Name,
		report.Number(p.req.Scenario.BaselineOffset, 2),
		report.Number(p.req.Scenario.Sensitivity, 3),
		report.Number(p.req.Scenario.NoiseScale, 3),
		p.req.Scenario.Seed)

	p.attach(&sec, chart.DualAxis(base.Name+" and "+projected.Name, "year", base, projected))
	fig, reg, err := chart.ScatterTrend(projected.Name+" vs "+base.Name, base, projected)
	if fig != nil {
		p.attach(&sec, fig)
	}
	if err != nil {
		sec.Warn(err)
		return sec
	}
	p.res.Regression = &reg
	sec.Metrics = report.FormatRegression(reg)
	return sec
}

func (p *pass) indicators() report.Section {
	sec := report.Section{Title: "Impact indicators"}
	projected := p.res.Projected
	if projected.Empty() {
		sec.Warn(series.ErrInsufficientData)
		return sec
	}
	specs := p.req.Indicators
	if specs == nil {
		specs = scenario.DefaultIndicators()
	}
	inds, err := scenario.Indicators(projected, p.req.Scenario, specs)
	if err != nil {
		sec.Warn(err)
		return sec
	}
	p.res.Indicators = inds

	tb := &report.Table{Headers: []string{"Indicator", "Group", "First", "Last", "Change"}}
	for i, s := range inds {
		ind := specs[i]
		first, last := s.Values[0], s.Values[s.Len()-1]
		pct, perr := analysis.PercentChange(first, last)
		change := report.Percent(pct)
		if perr != nil {
			change = report.Undefined
		}
		tb.Rows = append(tb.Rows, []string{
			s.Name, ind.Group,
			withUnit(report.Number(first, 2), ind.Unit),
			withUnit(report.Number(last, 2), ind.Unit),
			change,
		})
	}
	sec.Table = tb
	p.attach(&sec, chart.SmallMultiples("Impact indicators", "year", 2, inds...))

	m, err := analysis.Matrix(append([]series.Series{projected}, inds...)...)
	if err != nil {
		sec.Warn(err)
		return sec
	}
	p.attach(&sec, chart.Heatmap("Indicator correlations", m))
	if name, r, ok := m.Strongest(projected.Name); ok {
		sec.Text = fmt.Sprintf("Strongest link to %s: **%s** (r = %s, %s).",
			projected.Name, name, report.Number(r, 3), analysis.Strength(r))
	}
	return sec
}

// overview compares categories of a wide table, or shows the value
// distribution of a long one.
func (p *pass) overview() report.Section {
	sec := report.Section{Title: "Overview"}
	t := p.res.Table
	if key, ok := t.Wide(p.req.Selection); ok {
		rows, err := t.RowsAsSeries(key)
		if err != nil {
			sec.Warn(err)
			return sec
		}
		var labels []string
		var values []float64
		for _, s := range rows {
			sum, err := analysis.Summarize(s)
			if err != nil || math.IsNaN(sum.PercentChange) {
				continue
			}
			labels = append(labels, s.Name)
			values = append(values, sum.PercentChange)
		}
		if len(labels) == 0 {
			sec.Warn(series.ErrInsufficientData)
			return sec
		}
		p.attach(&sec, chart.Bar("Percent change by "+key, "percent change", labels, values))
		return sec
	}
	if p.res.Baseline.Empty() {
		sec.Warn(series.ErrInsufficientData)
		return sec
	}
	p.attach(&sec, chart.Histogram(p.res.Baseline.Name+" distribution", p.res.Baseline, p.req.Bins))
	return sec
}

// attach renders fig (when an output directory is set) and links it into sec.
// A render failure is a warning; the figure description is kept.
func (p *pass) attach(sec *report.Section, fig *chart.Figure) {
	a := Artifact{Figure: fig}
	if p.req.OutDir != "" {
		format := p.req.Format
		if format == "" {
			format = "png"
		}
		rel := filepath.Join("charts", fmt.Sprintf("%02d-%s.%s", len(p.res.Figures)+1, utils.Slug(fig.Title), format))
		var buf bytes.Buffer
		if err := chart.Render(fig, format, &buf, p.req.Size); err != nil {
			p.log.Warn("render failed", zap.String("figure", fig.Title), zap.Error(err))
			sec.Warn(fmt.Errorf("chart %q: %w", fig.Title, err))
		} else if err := utils.SafeWriteFile(filepath.Join(p.req.OutDir, rel), buf.Bytes()); err != nil {
			sec.Warn(err)
		} else {
			a.Path = rel
			sec.Figures = append(sec.Figures, report.FigureRef{Title: fig.Title, Path: filepath.ToSlash(rel)})
		}
	}
	p.res.Figures = append(p.res.Figures, a)
}

func (r *Runner) write(req Request, res *Result) error {
	if req.OutDir == "" {
		return nil
	}
	path := filepath.Join(req.OutDir, ReportName)
	if err := utils.SafeWriteFile(path, []byte(res.Document.Markdown())); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	res.ReportPath = path
	return nil
}

func withUnit(s, unit string) string {
	if unit == "" || s == report.Undefined {
		return s
	}
	return s + " " + unit
}
