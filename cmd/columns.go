package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/table"
	"github.com/KaramelBytes/trendloom/internal/utils"
)

var (
	colLoad       loadFlags
	colProfile    bool
	colOutputPath string
	colSampleRows int
	colMaxRows    int
	colGroupBy    []string
	colCorr       bool
	colOutliers   bool
	colOutlierThr float64
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List the columns of a table and which can be charted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := colLoad.load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if colProfile {
			opt := analysis.DefaultProfileOptions()
			if colSampleRows >= 0 {
				opt.SampleRows = colSampleRows
			}
			if colMaxRows >= 0 {
				opt.MaxRows = colMaxRows
			}
			opt.GroupBy = colGroupBy
			opt.Correlations = colCorr
			if cmd.Flags().Changed("outliers") {
				opt.Outliers = colOutliers
			}
			if colOutlierThr > 0 {
				opt.OutlierThreshold = colOutlierThr
			}
			md := analysis.Profile(t, opt).Markdown()
			if colOutputPath != "" {
				if err := utils.SafeWriteFile(colOutputPath, []byte(md)); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(out, "✓ Wrote profile to %s\n", colOutputPath)
				return nil
			}
			return printMarkdown(cmd, md)
		}

		cl, err := table.Classify(t)
		if err != nil && !errors.Is(err, table.ErrNoNumericColumns) {
			return err
		}
		tb := &report.Table{Headers: []string{"Column", "Kind", "Unit", "Missing"}}
		for _, c := range t.Columns {
			tb.Rows = append(tb.Rows, []string{c.Name, string(c.Kind), c.Unit, strconv.Itoa(c.Missing())})
		}
		fmt.Fprintf(out, "%s: %s rows, %d columns\n", t.Name, humanize.Comma(int64(t.NumRows())), len(t.Columns))
		fmt.Fprintln(out, report.TerminalTable(tb))
		warn(cmd, err)
		if len(cl.Numeric) > 0 {
			fmt.Fprintf(out, "✓ Numeric (y axis): %s\n", strings.Join(cl.Numeric, ", "))
		}
		if len(cl.Temporal) > 0 {
			fmt.Fprintf(out, "✓ Dates (x axis): %s\n", strings.Join(cl.Temporal, ", "))
		}
		if key := t.WideKey(); key != "" {
			keys, _ := t.Keys(key)
			fmt.Fprintf(out, "✓ Wide table keyed by %q: %s\n", key, strings.Join(keys, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	colLoad.register(columnsCmd)
	columnsCmd.Flags().BoolVar(&colProfile, "profile", false, "print a dataset profile (stats, outliers, samples) instead of the column list")
	columnsCmd.Flags().StringVarP(&colOutputPath, "output", "o", "", "with --profile: path to write the Markdown profile")
	columnsCmd.Flags().IntVar(&colSampleRows, "sample-rows", 5, "with --profile: number of sample rows to include")
	columnsCmd.Flags().IntVar(&colMaxRows, "max-rows", 100000, "with --profile: maximum rows to process (0 = unlimited)")
	columnsCmd.Flags().StringSliceVar(&colGroupBy, "group-by", nil, "with --profile: column names to group by (repeatable)")
	columnsCmd.Flags().BoolVar(&colCorr, "correlations", true, "with --profile: compute Pearson correlations among numeric columns")
	columnsCmd.Flags().BoolVar(&colOutliers, "outliers", true, "with --profile: compute robust outlier counts (MAD)")
	columnsCmd.Flags().Float64Var(&colOutlierThr, "outlier-threshold", 3.5, "with --profile: robust |z| threshold for outliers (MAD-based)")
}
