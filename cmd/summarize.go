package cmd

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/series"
)

var (
	sumLoad   loadFlags
	sumSelect selectFlags
	sumAll    bool
	sumStats  bool
	sumFrom   float64
	sumTo     float64
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Print first/last values, absolute, percent and annualized change of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := sumLoad.load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if sumAll {
			key, ok := t.Wide(sumSelect.selection())
			if !ok {
				return fmt.Errorf("--all needs a wide table (one column per year); use --key to name its row column")
			}
			rows, err := t.RowsAsSeries(key)
			if err != nil {
				return degrade(cmd, err)
			}
			fmt.Fprintln(out, report.TerminalTable(summaryTable(rows)))
			return nil
		}

		s, unit, err := t.Select(sumSelect.selection())
		if err != nil {
			return degrade(cmd, err)
		}
		s = window(cmd, s)
		fmt.Fprintf(out, "%s (%d points)\n", s.Name, s.Len())
		sum, err := analysis.Summarize(s)
		if err != nil && !errors.Is(err, analysis.ErrDivisionByZero) {
			return degrade(cmd, err)
		}
		ms := report.FormatSummary(sum, unit, cfg.Decimals)
		if sumStats {
			ms = append(ms, report.FormatStats(analysis.Describe(s.Values), cfg.Decimals)...)
		}
		fmt.Fprintln(out, report.Terminal(ms))
		warn(cmd, err)
		return nil
	},
}

// window restricts s to the --from/--to index range when either flag is set.
func window(cmd *cobra.Command, s series.Series) series.Series {
	lo, hi := math.Inf(-1), math.Inf(1)
	if cmd.Flags().Changed("from") {
		lo = sumFrom
	}
	if cmd.Flags().Changed("to") {
		hi = sumTo
	}
	return s.Between(lo, hi)
}

func summaryTable(rows []series.Series) *report.Table {
	tb := &report.Table{Headers: []string{"Series", "First", "Last", "Change", "Percent", "Per year"}}
	for _, s := range rows {
		sum, err := analysis.Summarize(s)
		if err != nil && !errors.Is(err, analysis.ErrDivisionByZero) {
			tb.Rows = append(tb.Rows, []string{s.Name, report.Undefined, report.Undefined, report.Undefined, report.Undefined, report.Undefined})
			continue
		}
		tb.Rows = append(tb.Rows, []string{
			s.Name,
			report.Number(sum.First, cfg.Decimals),
			report.Number(sum.Last, cfg.Decimals),
			report.Signed(sum.AbsoluteChange, cfg.Decimals),
			report.Percent(sum.PercentChange),
			report.Percent(sum.AnnualizedPercent),
		})
	}
	return tb
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	sumLoad.register(summarizeCmd)
	sumSelect.register(summarizeCmd)
	summarizeCmd.Flags().BoolVar(&sumAll, "all", false, "wide tables: summarize every row")
	summarizeCmd.Flags().BoolVar(&sumStats, "stats", false, "also print count, mean, std and quartiles")
	summarizeCmd.Flags().Float64Var(&sumFrom, "from", 0, "first index (year) to include")
	summarizeCmd.Flags().Float64Var(&sumTo, "to", 0, "last index (year) to include")
}
