package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/trendloom/internal/series"
)

// Size is a figure size in inches.
type Size struct {
	Width  float64 `mapstructure:"width_in" yaml:"width_in"`
	Height float64 `mapstructure:"height_in" yaml:"height_in"`
}

// DefaultSize is used when a dimension is zero.
var DefaultSize = Size{Width: 8, Height: 4.5}

// Formats lists the supported output formats.
var Formats = []string{"png", "svg", "pdf", "jpg"}

// FormatFromPath returns the format implied by a file extension, or "".
func FormatFromPath(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return ""
	}
	ext := strings.ToLower(path[i+1:])
	if ext == "jpeg" {
		ext = "jpg"
	}
	for _, f := range Formats {
		if f == ext {
			return f
		}
	}
	return ""
}

// Render draws fig in the given format to w.
func Render(fig *Figure, format string, w io.Writer, size Size) error {
	format = strings.ToLower(format)
	if FormatFromPath("x."+format) == "" {
		return fmt.Errorf("unsupported chart format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
	if size.Width <= 0 {
		size.Width = DefaultSize.Width
	}
	if size.Height <= 0 {
		size.Height = DefaultSize.Height
	}
	width, height := vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch

	grid, err := plots(fig)
	if err != nil {
		return err
	}
	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return fmt.Errorf("create %s canvas: %w", format, err)
	}
	dc := draw.New(c)
	if len(grid) == 1 && len(grid[0]) == 1 {
		grid[0][0].Draw(dc)
	} else {
		tiles := draw.Tiles{
			Rows: len(grid),
			Cols: len(grid[0]),
			PadX: vg.Millimeter * 4,
			PadY: vg.Millimeter * 4,
		}
		canvases := plot.Align(grid, tiles, dc)
		for i := range grid {
			for j, p := range grid[i] {
				if p != nil {
					p.Draw(canvases[i][j])
				}
			}
		}
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// plots lays fig out as a grid of gonum plots, row-major.
func plots(fig *Figure) ([][]*plot.Plot, error) {
	switch fig.Kind {
	case KindLine, KindScatter:
		p, err := xyPlot(fig.Title, fig.XLabel, fig.YLabel, fig.Traces, fig.XCategories)
		if err != nil {
			return nil, err
		}
		return [][]*plot.Plot{{p}}, nil

	case KindBar:
		p, err := barPlot(fig)
		if err != nil {
			return nil, err
		}
		return [][]*plot.Plot{{p}}, nil

	case KindHistogram:
		p, err := histPlot(fig)
		if err != nil {
			return nil, err
		}
		return [][]*plot.Plot{{p}}, nil

	case KindDualAxis:
		// Stacked panels sharing the x range stand in for a second y axis.
		var left, right []Trace
		for _, t := range fig.Traces {
			if t.Axis == AxisRight {
				right = append(right, t)
			} else {
				left = append(left, t)
			}
		}
		top, err := xyPlot(fig.Title, "", fig.YLabel, left, fig.XCategories)
		if err != nil {
			return nil, err
		}
		bottom, err := xyPlot("", fig.XLabel, fig.Y2Label, right, fig.XCategories)
		if err != nil {
			return nil, err
		}
		shareX(top, bottom)
		return [][]*plot.Plot{{top}, {bottom}}, nil

	case KindSmallMultiples:
		if len(fig.Panels) == 0 {
			return nil, series.ErrInsufficientData
		}
		cols := fig.Columns
		if cols <= 0 {
			cols = 2
		}
		if cols > len(fig.Panels) {
			cols = len(fig.Panels)
		}
		rows := (len(fig.Panels) + cols - 1) / cols
		grid := make([][]*plot.Plot, rows)
		for i := range grid {
			grid[i] = make([]*plot.Plot, cols)
		}
		for k, panel := range fig.Panels {
			p, err := xyPlot(panel.Title, fig.XLabel, panel.YLabel, panel.Traces, fig.XCategories)
			if err != nil {
				return nil, err
			}
			grid[k/cols][k%cols] = p
		}
		return grid, nil

	case KindHeatmap:
		p, err := heatPlot(fig)
		if err != nil {
			return nil, err
		}
		return [][]*plot.Plot{{p}}, nil
	}
	return nil, fmt.Errorf("unknown chart kind %q", fig.Kind)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// xyPlot draws traces on shared axes. Non-empty categories label x positions 0..n-1.
func xyPlot(title, xLabel, yLabel string, traces []Trace, categories []string) (*plot.Plot, error) {
	p := newPlot(title, xLabel, yLabel)
	if len(traces) > 1 {
		p.Legend.Top = true
	}
	for i, t := range traces {
		pts, err := xys(t)
		if err != nil {
			return nil, fmt.Errorf("trace %q: %w", t.Name, err)
		}
		switch t.Style {
		case StyleMarkers:
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("trace %q: %w", t.Name, err)
			}
			s.GlyphStyle.Color = plotutil.Color(i)
			s.GlyphStyle.Shape = draw.CircleGlyph{}
			s.GlyphStyle.Radius = vg.Points(3)
			p.Add(s)
			p.Legend.Add(t.Name, s)
		default:
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("trace %q: %w", t.Name, err)
			}
			l.Color = plotutil.Color(i)
			l.Width = vg.Points(1.5)
			if t.Style == StyleTrend {
				l.Color = color.RGBA{R: 200, A: 255}
				l.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
			}
			p.Add(l)
			p.Legend.Add(t.Name, l)
		}
	}
	if len(categories) > 0 {
		p.NominalX(categories...)
	}
	return p, nil
}

func xys(t Trace) (plotter.XYs, error) {
	if len(t.X) != len(t.Y) {
		return nil, fmt.Errorf("x has %d points, y has %d", len(t.X), len(t.Y))
	}
	pts := make(plotter.XYs, 0, len(t.Y))
	for i := range t.Y {
		if math.IsNaN(t.X[i]) || math.IsNaN(t.Y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: t.X[i], Y: t.Y[i]})
	}
	if len(pts) == 0 {
		return nil, series.ErrInsufficientData
	}
	return pts, nil
}

func shareX(ps ...*plot.Plot) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range ps {
		lo = math.Min(lo, p.X.Min)
		hi = math.Max(hi, p.X.Max)
	}
	for _, p := range ps {
		p.X.Min, p.X.Max = lo, hi
	}
}

func barPlot(fig *Figure) (*plot.Plot, error) {
	if len(fig.Traces) == 0 || len(fig.Traces[0].Y) == 0 {
		return nil, series.ErrInsufficientData
	}
	t := fig.Traces[0]
	p := newPlot(fig.Title, fig.XLabel, fig.YLabel)
	bars, err := plotter.NewBarChart(plotter.Values(t.Y), vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	if len(t.Labels) == len(t.Y) {
		p.NominalX(t.Labels...)
	}
	return p, nil
}

func histPlot(fig *Figure) (*plot.Plot, error) {
	if len(fig.Traces) == 0 || len(fig.Traces[0].Y) == 0 {
		return nil, series.ErrInsufficientData
	}
	bins := fig.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	p := newPlot(fig.Title, fig.XLabel, fig.YLabel)
	h, err := plotter.NewHist(plotter.Values(fig.Traces[0].Y), bins)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p, nil
}

// corrGrid adapts a Grid to plotter.GridXYZ with rows drawn top to bottom.
type corrGrid struct{ g *Grid }

func (c corrGrid) Dims() (cols, rows int) { return len(c.g.Cols), len(c.g.Rows) }
func (c corrGrid) Z(col, row int) float64  { return c.g.Z[len(c.g.Rows)-1-row][col] }
func (c corrGrid) X(col int) float64       { return float64(col) }
func (c corrGrid) Y(row int) float64       { return float64(row) }

func heatPlot(fig *Figure) (*plot.Plot, error) {
	g := fig.Grid
	if g == nil || len(g.Rows) == 0 || len(g.Cols) == 0 {
		return nil, series.ErrInsufficientData
	}
	p := newPlot(fig.Title, "", "")
	h := plotter.NewHeatMap(corrGrid{g}, palette.Heat(12, 1))
	h.Min, h.Max = -1, 1
	h.NaN = color.Gray{Y: 220}
	p.Add(h)

	var labels plotter.XYLabels
	for r := range g.Rows {
		for c := range g.Cols {
			v := g.Z[r][c]
			txt := "n/a"
			if !math.IsNaN(v) {
				txt = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(len(g.Rows) - 1 - r)})
			labels.Labels = append(labels.Labels, txt)
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	p.Add(l)

	rows := make([]string, len(g.Rows))
	for i, name := range g.Rows {
		rows[len(g.Rows)-1-i] = name
	}
	p.NominalX(g.Cols...)
	p.NominalY(rows...)
	return p, nil
}
