// Package report formats derived indicators for people: fixed-precision
// metrics, user-facing warnings, and Markdown or terminal documents.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/series"
)

// Undefined is printed in place of a value that could not be computed.
const Undefined = "undefined"

// Metric is one labelled, already formatted value.
type Metric struct {
	Label string
	Value string
	// Note is optional context, such as the correlation strength.
	Note string
}

// Number formats v with the given decimals, or Undefined for NaN/Inf.
func Number(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Signed is Number with an explicit sign on positive values.
func Signed(v float64, decimals int) string {
	s := Number(v, decimals)
	if s != Undefined && v > 0 {
		return "+" + s
	}
	return s
}

// Percent formats v (already scaled to 0..100) with two decimals and a % suffix.
func Percent(v float64) string {
	s := Signed(v, 2)
	if s == Undefined {
		return s
	}
	return s + "%"
}

// PValue formats a probability in scientific notation.
func PValue(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Undefined
	}
	return fmt.Sprintf("%.2e", p)
}

func withUnit(s, unit string) string {
	if unit == "" || s == Undefined {
		return s
	}
	return s + " " + unit
}

// FormatSummary renders a Summary. decimals applies to the values in unit;
// percentages always use two decimals.
func FormatSummary(s analysis.Summary, unit string, decimals int) []Metric {
	span := Number(s.Span(), 0)
	rate := ""
	if unit != "" {
		rate = unit + "/yr"
	}
	return []Metric{
		{Label: "First (" + series.FormatIndex(s.FirstIndex) + ")", Value: withUnit(Number(s.First, decimals), unit)},
		{Label: "Last (" + series.FormatIndex(s.LastIndex) + ")", Value: withUnit(Number(s.Last, decimals), unit)},
		{Label: "Absolute change", Value: withUnit(Signed(s.AbsoluteChange, decimals), unit)},
		{Label: "Percent change", Value: Percent(s.PercentChange)},
		{Label: "Annualized change", Value: withUnit(Signed(s.AnnualizedChange, decimals), rate), Note: "over " + span + " years"},
		{Label: "Annualized percent", Value: Percent(s.AnnualizedPercent)},
	}
}

// FormatRegression renders a Regression of Y on X.
func FormatRegression(r analysis.Regression) []Metric {
	return []Metric{
		{Label: "Correlation (r)", Value: Number(r.Correlation, 3), Note: analysis.Strength(r.Correlation)},
		{Label: "R²", Value: Number(r.RSquared, 3)},
		{Label: "Slope", Value: Number(r.Slope, 3), Note: fmt.Sprintf("%s per unit of %s", r.Y, r.X)},
		{Label: "Intercept", Value: Number(r.Intercept, 3)},
		{Label: "p-value", Value: PValue(r.PValue)},
		{Label: "Std. error", Value: Number(r.StdErr, 3)},
		{Label: "Points", Value: strconv.Itoa(r.N)},
	}
}

// FormatStats renders a describe-style summary.
func FormatStats(st analysis.Stats, decimals int) []Metric {
	return []Metric{
		{Label: "count", Value: strconv.Itoa(st.Count)},
		{Label: "mean", Value: Number(st.Mean, decimals)},
		{Label: "std", Value: Number(st.Std, decimals)},
		{Label: "min", Value: Number(st.Min, decimals)},
		{Label: "25%", Value: Number(st.Q1, decimals)},
		{Label: "50%", Value: Number(st.Median, decimals)},
		{Label: "75%", Value: Number(st.Q3, decimals)},
		{Label: "max", Value: Number(st.Max, decimals)},
	}
}
