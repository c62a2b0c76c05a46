package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/utils"
)

var (
	chLoad   loadFlags
	chKind   string
	chX      string
	chY      string
	chY2     string
	chYs     []string
	chBins   int
	chOutput string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render one chart from table columns",
	Long: fmt.Sprintf(`Render one chart from table columns.

Kinds: %s.
The output format follows the --output extension (.png, .svg, .pdf, .jpg);
.json writes the renderer-independent figure description instead.`, kindList()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := chart.ParseKind(chKind)
		if err != nil {
			return err
		}
		t, err := chLoad.load(args[0])
		if err != nil {
			return err
		}
		bins := chBins
		if bins <= 0 {
			bins = cfg.HistogramBins
		}
		fig, err := chart.FromTable(t, kind, chart.Binding{X: chX, Y: chY, Y2: chY2, Ys: chYs, Bins: bins})
		if err != nil {
			return degrade(cmd, err)
		}
		path := chOutput
		if path == "" {
			path = filepath.Join(cfg.OutputDir, utils.Slug(fig.Title)+"."+cfg.ChartFormat)
		}
		return writeFigure(cmd, fig, path)
	},
}

func kindList() string {
	var ks []string
	for _, k := range chart.Kinds() {
		ks = append(ks, string(k))
	}
	return strings.Join(ks, ", ")
}

// writeFigure renders fig to path, or encodes it when path ends in .json.
func writeFigure(cmd *cobra.Command, fig *chart.Figure, path string) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := chart.Encode(fig)
		if err != nil {
			return err
		}
		data = b
	} else {
		format := chart.FormatFromPath(path)
		if format == "" {
			format = cfg.ChartFormat
			path += "." + format
		}
		var buf bytes.Buffer
		if err := chart.Render(fig, format, &buf, cfg.ChartSize()); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", fig.Kind, path)
	return nil
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chLoad.register(chartCmd)
	chartCmd.Flags().StringVarP(&chKind, "kind", "k", "line", "chart kind")
	chartCmd.Flags().StringVar(&chX, "x", "", "x axis column")
	chartCmd.Flags().StringVar(&chY, "y", "", "y axis column")
	chartCmd.Flags().StringVar(&chY2, "y2", "", "dual-axis: right-hand column")
	chartCmd.Flags().StringSliceVar(&chYs, "ys", nil, "small-multiples: columns to panel (default: every numeric column but x)")
	chartCmd.Flags().IntVar(&chBins, "bins", 0, "histogram: number of bins (overrides config)")
	chartCmd.Flags().StringVarP(&chOutput, "output", "o", "", "output path (default: <output_dir>/<title>.<chart_format>)")
}
