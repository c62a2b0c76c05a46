package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendloom/internal/table"
)

const stationCSV = `Region;date;Emissions (kt);Temp (°F);Note
north;2000-01-01;5,0;50;calm
north;2001-01-01;5,2;51;calm
south;2002-01-01;5,4;52;storm
south;2003-01-01;;53;calm
north;2004-01-01;5,8;54;calm
south;2005-01-01;6,0;55;storm
north;2006-01-01;6,2;56;calm
south;2007-01-01;6,4;57;calm
north;2008-01-01;6,6;58;storm
south;2009-01-01;30,0;59;calm
`

func stationTable(t *testing.T) *table.Table {
	t.Helper()
	opt := table.Options{
		Delimiter:        ';',
		DecimalSeparator: ',',
		UnitNormalize:    true,
		UnitTargets:      map[string]string{"kt": "Mt", "°F": "°C"},
	}
	tbl, err := table.Read(strings.NewReader(stationCSV), "stations.csv", opt)
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not in report", name)
	return ColumnSummary{}
}

func TestProfileColumns(t *testing.T) {
	opt := DefaultProfileOptions()
	opt.SampleRows = 3
	rep := Profile(stationTable(t), opt)

	assert.Equal(t, "stations.csv", rep.Name)
	assert.Equal(t, 10, rep.Rows)
	assert.Equal(t, 10, rep.Processed)
	assert.Empty(t, rep.Warnings)
	require.Len(t, rep.Samples, 3)
	assert.Equal(t, []string{"north", "2000-01-01", "5,0", "50", "calm"}, rep.Samples[0])

	em := column(t, rep, "Emissions (kt)")
	assert.Equal(t, "numeric", em.Kind)
	assert.Equal(t, "Mt", em.Unit)
	assert.Equal(t, 9, em.NonNull)
	assert.Equal(t, 1, em.Missing)
	assert.InDelta(t, 0.005, em.Min, 1e-12)
	assert.InDelta(t, 0.030, em.Max, 1e-12)
	assert.InDelta(t, 76.6/9/1000, em.Mean, 1e-12)
	// Only the 30 kt reading sits far from the median: |z| = 0.6745 * 24 / 0.6.
	assert.Equal(t, 1, em.OutliersCount)
	assert.InDelta(t, 0.6745*24/0.6, em.OutliersMaxAbsZ, 1e-6)

	temp := column(t, rep, "Temp (°F)")
	assert.Equal(t, "°C", temp.Unit)
	assert.InDelta(t, 10.0, temp.Min, 1e-9)
	assert.InDelta(t, 15.0, temp.Max, 1e-9)
	assert.InDelta(t, 12.5, temp.Mean, 1e-9)
	assert.Zero(t, temp.OutliersCount)

	date := column(t, rep, "date")
	assert.Equal(t, "datetime", date.Kind)
	assert.Equal(t, "2000-01-01", date.First)
	assert.Equal(t, "2009-01-01", date.Last)

	note := column(t, rep, "Note")
	assert.Equal(t, "categorical", note.Kind)
	assert.Equal(t, 2, note.Unique)
	assert.Equal(t, CategoryCount{Value: "calm", Count: 7}, note.TopValues[0])

	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"Emissions (kt)", "Temp (°F)"}, rep.Corr.Columns)
	assert.Equal(t, 9, rep.Corr.Pairs[0][1])
}

func TestProfileGroupBy(t *testing.T) {
	opt := DefaultProfileOptions()
	opt.GroupBy = []string{"region", "Station"}
	rep := Profile(stationTable(t), opt)

	require.Len(t, rep.Groups, 2)
	north, south := rep.Groups[0], rep.Groups[1]
	assert.Equal(t, "Region=north", north.Key)
	assert.Equal(t, 5, north.Size)
	assert.Equal(t, "Region=south", south.Key)

	assert.Equal(t, 5, north.Metrics["Emissions (kt)"].Count)
	assert.InDelta(t, 0.00576, north.Metrics["Emissions (kt)"].Mean, 1e-12)
	assert.Equal(t, 4, south.Metrics["Emissions (kt)"].Count)
	assert.InDelta(t, (53.8-32)*5/9, north.Metrics["Temp (°F)"].Mean, 1e-9)

	assert.Equal(t, []string{`group-by column "Station" not found`}, rep.Warnings)
}

func TestProfileMaxRowsAndMarkdown(t *testing.T) {
	opt := DefaultProfileOptions()
	opt.MaxRows = 8
	opt.GroupBy = []string{"Region"}
	rep := Profile(stationTable(t), opt)
	assert.Equal(t, 8, rep.Processed)
	assert.Equal(t, []string{"processed only 8/10 rows due to MaxRows"}, rep.Warnings)

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: stations.csv",
		"Rows: ~10 (processed 8)",
		"- Emissions (kt) [Mt]: numeric (non-null 7, missing 12.5%)",
		"- Temp (°F) [°C]: numeric",
		"- date: datetime (non-null 8, missing 0.0%): 2000-01-01 to 2007-01-01",
		"[GROUP-BY SUMMARY]",
		"- Region=north (n=4)",
		"[CORRELATIONS]",
		"- Emissions (kt) ~ Temp (°F): r=",
		"[HEAD AND SAMPLE ROWS]",
		"[NOTES]",
	} {
		assert.Contains(t, md, want)
	}
}

func TestProfileUnknownGroupColumn(t *testing.T) {
	opt := DefaultProfileOptions()
	opt.GroupBy = []string{"Country"}
	rep := Profile(stationTable(t), opt)
	assert.Empty(t, rep.Groups)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], `"Country"`)
}
