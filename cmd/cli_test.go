package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

const emissionsCSV = `Category;1990;1991;1992;1993
Domestic aviation;0.636;0.79;0.79;0.898
Cars;5.947;6.020;6.228;10.123
Total;6.583;6.810;7.018;11.021
`

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls on the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args in an isolated HOME and returns
// stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestColumnsListsWideTable(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, _, err := run(t, "columns", path, "--delimiter", ";")
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows, 5 columns")
	assert.Contains(t, out, `Wide table keyed by "Category"`)
	assert.Contains(t, out, "Cars")
}

func TestColumnsProfile(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, _, err := run(t, "columns", path, "--delimiter", ";", "--profile")
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "[SCHEMA]")

	dest := filepath.Join(t.TempDir(), "profile.md")
	out, _, err = run(t, "columns", path, "--delimiter", ";", "--profile", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote profile")
	_, err = os.Stat(dest)
	require.NoError(t, err)
}

func TestSummarizeRow(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, _, err := run(t, "summarize", path, "--delimiter", ";", "--row", "Cars")
	require.NoError(t, err)
	assert.Contains(t, out, "Cars (4 points)")
	assert.Contains(t, out, "+4.176")
	assert.Contains(t, out, "+70.22%")

	out, _, err = run(t, "summarize", path, "--delimiter", ";", "--row", "Cars", "--to", "1992", "--decimals", "2", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cars (3 points)")
	assert.Contains(t, out, "+0.28")
	assert.Contains(t, out, "mean")
}

func TestSummarizeAllRows(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, _, err := run(t, "summarize", path, "--delimiter", ";", "--all")
	require.NoError(t, err)
	for _, name := range []string{"Domestic aviation", "Cars", "Total"} {
		assert.Contains(t, out, name)
	}

	long := writeInput(t, "temps.csv", "year,temp\n2000,14\n2001,15\n")
	_, _, err = run(t, "summarize", long, "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wide table")
}

func TestSummarizeZeroFirstValueWarns(t *testing.T) {
	path := writeInput(t, "zero.csv", "year,value\n2000,0\n2001,2\n2002,4\n")
	out, errOut, err := run(t, "summarize", path, "--x", "year", "--y", "value")
	require.NoError(t, err)
	assert.Contains(t, out, "undefined")
	assert.Contains(t, errOut, "divide by zero")
}

func TestSummarizeUnknownColumnWarns(t *testing.T) {
	path := writeInput(t, "zero.csv", "year,value\n2000,0\n2001,2\n")
	out, errOut, err := run(t, "summarize", path, "--x", "year", "--y", "valeu")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `Did you mean "value"?`)
}

func TestSummarizeSinglePointWarns(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, errOut, err := run(t, "summarize", path, "--delimiter", ";", "--row", "Cars", "--from", "1993")
	require.NoError(t, err)
	assert.Contains(t, out, "Cars (1 points)")
	assert.Contains(t, errOut, "Not enough data points")
}

func TestLoadFailureIsAnError(t *testing.T) {
	_, _, err := run(t, "summarize", filepath.Join(t.TempDir(), "missing.csv"))
	var nf *table.SourceNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCorrelateColumns(t *testing.T) {
	path := writeInput(t, "pair.csv", "year,a,b,c\n2000,1,2,5\n2001,2,4,3\n2002,3,6,4\n2003,4,8,1\n")
	out, _, err := run(t, "correlate", path, "a", "b", "--x", "year")
	require.NoError(t, err)
	assert.Contains(t, out, "1.000")
	assert.Contains(t, out, "strong")

	dest := filepath.Join(t.TempDir(), "matrix.json")
	out, _, err = run(t, "correlate", path, "--x", "year", "--matrix", "--chart", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote heatmap chart")
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	fig, err := chart.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, chart.KindHeatmap, fig.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, fig.Grid.Rows)
}

func TestCorrelateRowsNeedTwoNames(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	_, _, err := run(t, "correlate", path, "Cars", "--delimiter", ";")
	require.Error(t, err)

	out, _, err := run(t, "correlate", path, "Cars", "Total", "--delimiter", ";")
	require.NoError(t, err)
	assert.Contains(t, out, "Correlation (r)")
}

func TestProjectWithIndicatorsAndForecast(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	dest := filepath.Join(t.TempDir(), "series.json")
	out, _, err := run(t, "project", path, "--delimiter", ";", "--row", "Cars", "--noise", "0",
		"--indicators", "--forecast", "12", "--json", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Average_Temperature")
	assert.Contains(t, out, "14.63")
	assert.Contains(t, out, "Forecast (noise-free):")
	assert.Contains(t, out, "14.91")
	assert.Contains(t, out, "Coral_Bleaching")

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got []series.Series
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &got))
	require.Len(t, got, 9)
	assert.Equal(t, "Cars", got[0].Name)
	assert.InDelta(t, 14.0, got[1].Values[0], 1e-12)
}

func TestProjectUnknownRowWarns(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	out, errOut, err := run(t, "project", path, "--delimiter", ";", "--row", "Carz")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `Did you mean "Cars"?`)
}

func TestProjectRejectsNegativeNoise(t *testing.T) {
	path := writeInput(t, "emissions.csv", emissionsCSV)
	_, _, err := run(t, "project", path, "--delimiter", ";", "--noise", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noise_scale")
}

func TestChartWritesFile(t *testing.T) {
	path := writeInput(t, "temps.csv", "date,temp\n2000-01-01,14.1\n2001-01-01,14.3\n2002-01-01,14.2\n")
	dest := filepath.Join(t.TempDir(), "line.svg")
	out, _, err := run(t, "chart", path, "--kind", "line", "--x", "date", "--y", "temp", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote line chart")
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	dir := t.TempDir()
	out, _, err = run(t, "chart", path, "--kind", "histogram", "--y", "temp", "--output-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "distribution-of-temp.png"))

	_, _, err = run(t, "chart", path, "--kind", "pie")
	require.Error(t, err)

	out, errOut, err := run(t, "chart", path, "--kind", "line", "--x", "date", "--y", "tmp", "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `Did you mean "temp"?`)
}

func TestDashboardBatch(t *testing.T) {
	wide := writeInput(t, "emissions.csv", emissionsCSV)
	long := writeInput(t, "temps.csv", "date;temp\n2000-01-01;14.1\n2001-01-01;14.3\n2002-01-01;14.2\n")
	missing := filepath.Join(t.TempDir(), "missing.csv")
	outDir := t.TempDir()

	out, errOut, err := run(t, "dashboard", wide, long, missing, "--delimiter", ";", "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "[1/3]")
	assert.Contains(t, errOut, "No dashboard for "+missing)
	for _, dir := range []string{"emissions", "temps"} {
		_, err = os.Stat(filepath.Join(outDir, dir, "dashboard.md"))
		require.NoError(t, err, dir)
	}

	_, _, err = run(t, "dashboard", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dashboard could be built")
}

func TestDashboardPrintsWithoutFiles(t *testing.T) {
	wide := writeInput(t, "emissions.csv", emissionsCSV)
	out, _, err := run(t, "dashboard", wide, "--delimiter", ";", "--no-files", "--quiet", "--row", "Cars")
	require.NoError(t, err)
	assert.Contains(t, out, "# Trend dashboard: emissions.csv")
	assert.Contains(t, out, "## Impact indicators")
}

func TestConfigSetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, _, err := run(t, "--config", cfgPath, "config", "set", "decimals", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved config")

	out, _, err = run(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "decimals: 2")
	assert.Contains(t, out, "scenario.seed: 42")
	assert.Contains(t, out, "Extreme_Weather_Events")

	_, _, err = run(t, "--config", cfgPath, "config", "set", "scenario.noise_scale", "-1")
	require.Error(t, err)
}
