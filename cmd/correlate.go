package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

var (
	corLoad   loadFlags
	corKey    string
	corX      string
	corMatrix bool
	corTop    int
	corChart  string
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file> [<a> <b>]",
	Short: "Correlate two series and fit b = slope*a + intercept",
	Long: `Correlate pairs two series by index and reports Pearson r, the least squares
fit of b on a, R² and the two-tailed p-value. In a wide table a and b name rows;
in a long table they name value columns sharing the --x index column.
With --matrix every numeric series is correlated with every other.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if corMatrix {
			return cobra.ExactArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(3)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := corLoad.load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if corMatrix {
			ss, err := allSeries(t)
			if err != nil {
				return degrade(cmd, err)
			}
			m, err := analysis.Matrix(ss...)
			if err != nil {
				return degrade(cmd, err)
			}
			tb := &report.Table{Headers: []string{"A", "B", "r", "Strength", "Points"}}
			for _, p := range m.TopPairs(corTop) {
				tb.Rows = append(tb.Rows, []string{p.A, p.B, report.Number(p.R, 3), analysis.Strength(p.R), fmt.Sprint(p.N)})
			}
			fmt.Fprintln(out, report.TerminalTable(tb))
			if corChart != "" {
				return writeFigure(cmd, chart.Heatmap("Correlations: "+t.Name, m), corChart)
			}
			return nil
		}

		a, err := pick(t, args[1])
		if err != nil {
			return degrade(cmd, err)
		}
		b, err := pick(t, args[2])
		if err != nil {
			return degrade(cmd, err)
		}
		fig, reg, err := chart.ScatterTrend(b.Name+" vs "+a.Name, a, b)
		if err != nil {
			if fig == nil {
				return degrade(cmd, err)
			}
			warn(cmd, err)
		} else {
			fmt.Fprintln(out, report.Terminal(report.FormatRegression(reg)))
		}
		if corChart != "" {
			return writeFigure(cmd, fig, corChart)
		}
		return nil
	},
}

// pick selects a row (wide tables) or a value column (long tables) by name.
func pick(t *table.Table, name string) (series.Series, error) {
	sel := table.Selection{KeyColumn: corKey, X: corX}
	if key, ok := t.Wide(table.Selection{KeyColumn: corKey}); ok && corX == "" {
		sel = table.Selection{KeyColumn: key, Row: name}
	} else {
		sel.Y = name
	}
	s, _, err := t.Select(sel)
	return s, err
}

// allSeries returns every row of a wide table, or every numeric column but the
// index of a long one.
func allSeries(t *table.Table) ([]series.Series, error) {
	if key, ok := t.Wide(table.Selection{KeyColumn: corKey}); ok && corX == "" {
		return t.RowsAsSeries(key)
	}
	x := corX
	if x == "" {
		x, _ = t.DefaultAxes()
	}
	cl, err := table.Classify(t)
	if err != nil {
		return nil, err
	}
	var out []series.Series
	for _, name := range cl.Numeric {
		if name == x {
			continue
		}
		s, _, err := t.Select(table.Selection{X: x, Y: name})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corLoad.register(correlateCmd)
	correlateCmd.Flags().StringVar(&corKey, "key", "", "wide tables: column holding the row names (default: first text column)")
	correlateCmd.Flags().StringVar(&corX, "x", "", "long tables: index column pairing the values (default: first date or numeric column)")
	correlateCmd.Flags().BoolVar(&corMatrix, "matrix", false, "correlate every numeric series with every other")
	correlateCmd.Flags().IntVar(&corTop, "top", 10, "with --matrix: number of strongest pairs to list")
	correlateCmd.Flags().StringVar(&corChart, "chart", "", "write the scatter (or heatmap with --matrix) to this path (.png, .svg, .pdf, .jpg or .json)")
}
