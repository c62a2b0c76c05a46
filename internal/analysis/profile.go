package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/table"
)

// ProfileOptions controls the dataset overview.
type ProfileOptions struct {
	// MaxRows limits rows profiled; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultProfileOptions returns reasonable defaults for a dataset overview.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		MaxRows:          100000,
		SampleRows:       5,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly overview of a loaded table.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Datetime range
	First, Last string
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// Profile summarizes every column of t.
func Profile(t *table.Table, opt ProfileOptions) *Report {
	rep := &Report{Name: t.Name, Rows: t.NumRows()}
	rep.Processed = rep.Rows
	if opt.MaxRows > 0 && rep.Processed > opt.MaxRows {
		rep.Processed = opt.MaxRows
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %s/%s rows due to MaxRows",
			humanize.Comma(int64(rep.Processed)), humanize.Comma(int64(rep.Rows))))
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < rep.Processed && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, t.Row(i))
	}

	var numeric []series.Series
	for ci := range t.Columns {
		c := &t.Columns[ci]
		s := ColumnSummary{Name: c.Name, Unit: c.Unit, Kind: string(c.Kind)}
		cats := map[string]int{}
		var vals []float64
		for i := 0; i < rep.Processed; i++ {
			raw := strings.TrimSpace(c.Raw[i])
			if isBlank(raw) {
				s.Missing++
				continue
			}
			s.NonNull++
			switch c.Kind {
			case table.KindNumeric:
				if v := c.Nums[i]; !math.IsNaN(v) {
					vals = append(vals, v)
				}
			case table.KindText:
				if len(cats) <= 10000 && len(raw) <= 64 {
					cats[raw]++
				}
				if len(s.ExampleTexts) < 3 {
					s.ExampleTexts = append(s.ExampleTexts, raw)
				}
			case table.KindDatetime:
				ts := c.Times[i]
				if ts.IsZero() {
					continue
				}
				f := ts.Format("2006-01-02")
				if s.First == "" || f < s.First {
					s.First = f
				}
				if f > s.Last {
					s.Last = f
				}
			}
		}
		switch c.Kind {
		case table.KindNumeric:
			summarizeNumeric(&s, vals, opt)
			numeric = append(numeric, series.Range(c.Name, c.Nums[:rep.Processed]))
		case table.KindText:
			// Short repeated tokens read as categories; free text keeps examples only.
			if len(cats) > 0 && len(cats) <= max(20, s.NonNull/2) {
				s.Kind = "categorical"
				s.Unique = len(cats)
				s.TopValues = topValues(cats, 8)
				s.ExampleTexts = nil
			}
		}
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		groups, warn := groupBy(t, rep.Processed, opt.GroupBy)
		rep.Groups = groups
		rep.Warnings = append(rep.Warnings, warn...)
	}
	if opt.Correlations && len(numeric) >= 2 {
		if m, err := Matrix(numeric...); err == nil {
			rep.Corr = m
		}
	}
	return rep
}

func summarizeNumeric(s *ColumnSummary, vals []float64, opt ProfileOptions) {
	if len(vals) == 0 {
		return
	}
	// Welford update
	var n int
	var mean, m2 float64
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, x := range vals {
		n++
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	s.Mean = mean
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	if !opt.Outliers || len(vals) < 8 {
		return
	}
	median, mad := medianMAD(vals)
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	s.OutlierThreshold = thr
	if mad == 0 {
		return
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		if az > s.OutliersMaxAbsZ {
			s.OutliersMaxAbsZ = az
		}
	}
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func groupBy(t *table.Table, rows int, names []string) ([]GroupResult, []string) {
	var keys []*table.Column
	var warn []string
	for _, name := range names {
		c, ok := lookupFold(t, name)
		if !ok {
			warn = append(warn, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		keys = append(keys, c)
	}
	if len(keys) == 0 {
		return nil, warn
	}
	type gAcc struct {
		size     int
		sum      map[string]float64
		cnt      map[string]int
		min, max map[string]float64
	}
	groups := map[string]*gAcc{}
	for i := 0; i < rows; i++ {
		parts := make([]string, len(keys))
		for k, c := range keys {
			parts[k] = fmt.Sprintf("%s=%s", c.Name, safeVal(strings.TrimSpace(c.Raw[i])))
		}
		gkey := strings.Join(parts, " | ")
		ga := groups[gkey]
		if ga == nil {
			ga = &gAcc{sum: map[string]float64{}, cnt: map[string]int{}, min: map[string]float64{}, max: map[string]float64{}}
			groups[gkey] = ga
		}
		ga.size++
		for _, c := range t.Columns {
			if c.Kind != table.KindNumeric || math.IsNaN(c.Nums[i]) {
				continue
			}
			x := c.Nums[i]
			ga.sum[c.Name] += x
			ga.cnt[c.Name]++
			if v, ok := ga.min[c.Name]; !ok || x < v {
				ga.min[c.Name] = x
			}
			if v, ok := ga.max[c.Name]; !ok || x > v {
				ga.max[c.Name] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for name, n := range ga.cnt {
			gr.Metrics[name] = NumSummary{Count: n, Min: ga.min[name], Max: ga.max[name], Mean: ga.sum[name] / float64(n)}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, warn
}

func lookupFold(t *table.Table, name string) (*table.Column, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range t.Columns {
		if strings.ToLower(t.Columns[i].Name) == want {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

func isBlank(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			b.WriteString(fmt.Sprintf("Rows: ~%s (processed %s)\n", humanize.Comma(int64(r.Rows)), humanize.Comma(int64(r.Processed))))
		} else {
			b.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(int64(r.Rows))))
		}
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" && !strings.Contains(c.Name, c.Unit) {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			}
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case "datetime":
			if c.First != "" {
				b.WriteString(fmt.Sprintf(": %s to %s", c.First, c.Last))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(": top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString(": e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (%s)\n", p.A, p.B, p.R, Strength(p.R)))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
