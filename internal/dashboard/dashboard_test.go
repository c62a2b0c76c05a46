package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/scenario"
	"github.com/KaramelBytes/trendloom/internal/table"
)

func emissions() Request {
	p := scenario.DefaultParameters()
	p.NoiseScale = 0.05
	return Request{
		Source:    filepath.Join("testdata", "emissions.csv"),
		Load:      table.Options{Delimiter: ';'},
		Selection: table.Selection{Row: "Cars"},
		Scenario:  p,
		Format:    "png",
		Size:      chart.Size{Width: 4, Height: 3},
	}
}

func TestRunWideTable(t *testing.T) {
	r := New(nil, zaptest.NewLogger(t))
	req := emissions()
	req.OutDir = t.TempDir()

	res, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Cars", res.Baseline.Name)
	assert.Equal(t, 27, res.Baseline.Len())
	require.NotNil(t, res.Summary)
	assert.InDelta(t, 4.176, res.Summary.AbsoluteChange, 1e-9)
	require.NotNil(t, res.Regression)
	assert.Greater(t, res.Regression.Correlation, 0.9)
	assert.Len(t, res.Indicators, len(scenario.DefaultIndicators()))
	assert.Empty(t, res.Document.Warnings())

	// line, dual-axis, scatter, small multiples, heatmap, bar
	require.Len(t, res.Figures, 6)
	for _, a := range res.Figures {
		require.NotEmpty(t, a.Path, a.Figure.Title)
		info, err := os.Stat(filepath.Join(req.OutDir, a.Path))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, chart.KindBar, res.Figures[5].Figure.Kind)

	md, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Summary")
	assert.Contains(t, string(md), "+70.22%")
	assert.Contains(t, string(md), "Extreme_Weather_Events")
	assert.Contains(t, string(md), "![")
}

func TestRunIsDeterministic(t *testing.T) {
	r := New(table.NewCache(nil), nil)
	a, err := r.Run(context.Background(), emissions())
	require.NoError(t, err)
	b, err := r.Run(context.Background(), emissions())
	require.NoError(t, err)
	assert.Equal(t, a.Projected.Values, b.Projected.Values)
	assert.Equal(t, a.Regression.Correlation, b.Regression.Correlation)
	for i, s := range a.Indicators {
		assert.Equal(t, s.Values, b.Indicators[i].Values)
	}
	assert.Empty(t, a.ReportPath)
}

func TestRunMissingSourceAborts(t *testing.T) {
	req := emissions()
	req.Source = filepath.Join(t.TempDir(), "nope.csv")
	res, err := New(nil, nil).Run(context.Background(), req)
	assert.Nil(t, res)
	var nf *table.SourceNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRunUnknownRowDegrades(t *testing.T) {
	req := emissions()
	req.Row = "Carz"
	res, err := New(nil, nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, res.Summary)
	assert.Nil(t, res.Regression)
	ws := strings.Join(res.Document.Warnings(), "\n")
	assert.Contains(t, ws, `Did you mean "Cars"?`)
	assert.Contains(t, ws, "Not enough data points")
	// the category comparison does not depend on the selected row
	require.Len(t, res.Figures, 1)
	assert.Equal(t, chart.KindBar, res.Figures[0].Figure.Kind)
}

func TestRunLongTableFromUpload(t *testing.T) {
	data := []byte("date,temp (°C),note\n" +
		"2000-01-01,14.1,a\n2001-01-01,14.3,b\n2002-01-01,0,c\n2003-01-01,14.6,d\n2004-01-01,14.8,e\n")
	req := Request{
		Source:   "upload.csv",
		Data:     data,
		Load:     table.DefaultOptions(),
		Scenario: scenario.Parameters{BaselineOffset: 14, Sensitivity: 0.15, NoiseScale: 0, Seed: 1},
		Bins:     5,
	}
	res, err := New(nil, zaptest.NewLogger(t)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "temp (°C)", res.Baseline.Name)
	require.NotNil(t, res.Summary)
	assert.InDelta(t, 0.7, res.Summary.AbsoluteChange, 1e-9)

	last := res.Figures[len(res.Figures)-1].Figure
	assert.Equal(t, chart.KindHistogram, last.Kind)
	assert.Equal(t, 5, last.Bins)
	assert.Contains(t, res.Document.Markdown(), "°C")
}

func TestRunZeroFirstValueKeepsSummary(t *testing.T) {
	data := []byte("year,value\n2000,0\n2001,2\n2002,4\n")
	req := Request{
		Source:    "zero.csv",
		Data:      data,
		Selection: table.Selection{X: "year", Y: "value"},
		Scenario:  scenario.DefaultParameters(),
	}
	res, err := New(nil, nil).Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	assert.InDelta(t, 4, res.Summary.AbsoluteChange, 1e-12)
	assert.Contains(t, strings.Join(res.Document.Warnings(), "\n"), "divide by zero")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil, nil).Run(ctx, emissions())
	assert.ErrorIs(t, err, context.Canceled)
}
