package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/trendloom/internal/config"
	"github.com/KaramelBytes/trendloom/internal/table"
)

// loadFlags are the table reading flags shared by every command that takes a file.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	normUnits  bool
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (overrides config)")
	cmd.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	cmd.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().BoolVar(&lf.normUnits, "normalize-units", false, "convert °F columns to °C; names keep the header text")
}

// options resolves the flags against the loaded config.
func (lf *loadFlags) options() (table.Options, error) {
	opt := table.DefaultOptions()
	delim := cfg.Delimiter
	if lf.delimiter != "" {
		delim = lf.delimiter
	}
	r, err := cfgpkg.DelimiterRune(delim)
	if err != nil {
		return opt, fmt.Errorf("unsupported --delimiter: %w", err)
	}
	opt.Delimiter = r
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	opt.Sheet = lf.sheetName
	if lf.sheetIndex > 0 {
		opt.SheetIndex = lf.sheetIndex
	}
	opt.UnitNormalize = lf.normUnits
	return opt, nil
}

// load reads path through the process-wide cache.
func (lf *loadFlags) load(path string) (*table.Table, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	return cache.Load(path, opt)
}

// selectFlags pick a series from a loaded table.
type selectFlags struct {
	key string
	row string
	x   string
	y   string
}

func (sf *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sf.key, "key", "", "wide tables: column holding the row names (default: first text column)")
	cmd.Flags().StringVar(&sf.row, "row", "", "wide tables: row to use (default: first row)")
	cmd.Flags().StringVar(&sf.x, "x", "", "long tables: index column, numeric or dates")
	cmd.Flags().StringVar(&sf.y, "y", "", "long tables: value column")
}

func (sf *selectFlags) selection() table.Selection {
	return table.Selection{KeyColumn: sf.key, Row: sf.row, X: sf.x, Y: sf.y}
}
