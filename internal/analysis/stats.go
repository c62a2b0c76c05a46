package analysis

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/trendloom/internal/series"
)

// ErrDivisionByZero reports a ratio whose denominator is zero: a percent change
// from a zero first value, or a regression on a constant explanatory series.
var ErrDivisionByZero = errors.New("division by zero")

// Summary describes how a single series moved between its first and last points.
type Summary struct {
	Name       string
	First      float64
	Last       float64
	FirstIndex float64
	LastIndex  float64
	Points     int

	AbsoluteChange    float64
	PercentChange     float64
	AnnualizedChange  float64
	AnnualizedPercent float64
}

// Span is the index distance between the first and last points.
func (s Summary) Span() float64 { return s.LastIndex - s.FirstIndex }

// Summarize computes first-to-last changes of s. Missing values are ignored and
// points are taken in index order.
//
// When the first value is zero the returned Summary is complete except for the
// percent fields, which are NaN, and the error is ErrDivisionByZero.
func Summarize(s series.Series) (Summary, error) {
	s = s.DropMissing().Sorted()
	if s.Len() < 2 {
		return Summary{Name: s.Name, Points: s.Len()}, series.ErrInsufficientData
	}
	n := s.Len()
	sum := Summary{
		Name:       s.Name,
		First:      s.Values[0],
		Last:       s.Values[n-1],
		FirstIndex: s.Index[0],
		LastIndex:  s.Index[n-1],
		Points:     n,
	}
	span := sum.Span()
	if span == 0 {
		return Summary{Name: s.Name, Points: n}, series.ErrInsufficientData
	}
	sum.AbsoluteChange = sum.Last - sum.First
	sum.AnnualizedChange = sum.AbsoluteChange / span
	pct, err := PercentChange(sum.First, sum.Last)
	if err != nil {
		sum.PercentChange = math.NaN()
		sum.AnnualizedPercent = math.NaN()
		return sum, err
	}
	sum.PercentChange = pct
	sum.AnnualizedPercent = pct / span
	return sum, nil
}

// PercentChange returns (last-first)/first*100.
func PercentChange(first, last float64) (float64, error) {
	if first == 0 {
		return math.NaN(), ErrDivisionByZero
	}
	return (last - first) / first * 100, nil
}

// Regression is the ordinary least squares fit of Y on X plus the Pearson correlation.
type Regression struct {
	X, Y        string
	N           int
	Correlation float64
	Slope       float64
	Intercept   float64
	RSquared    float64
	PValue      float64
	// StdErr is the standard error of the slope.
	StdErr float64
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 { return r.Intercept + r.Slope*x }

// Correlate pairs a and b by index and regresses b on a. Pairs with a missing
// value on either side are dropped. The correlation is symmetric in its
// arguments; slope and intercept are not.
func Correlate(a, b series.Series) (Regression, error) {
	_, xs, ys, err := series.Align(a, b)
	if err != nil {
		return Regression{}, err
	}
	return Fit(a.Name, b.Name, xs, ys)
}

// Fit regresses ys on xs point by point. Repeated x values are allowed and pairs
// with a NaN on either side are skipped.
func Fit(xName, yName string, xs, ys []float64) (Regression, error) {
	xs, ys = complete(xs, ys)
	reg := Regression{X: xName, Y: yName, N: len(xs)}
	if reg.N < 2 {
		return reg, series.ErrInsufficientData
	}
	vx := stat.Variance(xs, nil)
	if vx == 0 {
		return reg, ErrDivisionByZero
	}
	reg.Intercept, reg.Slope = stat.LinearRegression(xs, ys, nil, false)

	vy := stat.Variance(ys, nil)
	if vy == 0 {
		// A flat response: the fit is exact but explains nothing.
		reg.Slope = 0
		reg.Intercept = ys[0]
		reg.PValue = 1
		return reg, nil
	}
	r := stat.Correlation(xs, ys, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	reg.Correlation = r
	reg.RSquared = r * r
	reg.PValue = pValue(r, reg.N)
	reg.StdErr = slopeStdErr(xs, ys, reg)
	return reg, nil
}

func complete(xs, ys []float64) (cx, cy []float64) {
	n := min(len(xs), len(ys))
	cx = make([]float64, 0, n)
	cy = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			continue
		}
		cx = append(cx, xs[i])
		cy = append(cy, ys[i])
	}
	return cx, cy
}

// pValue is the two-tailed probability of |r| under the null hypothesis of no
// correlation, using Student's t with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 || math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return p
}

func slopeStdErr(xs, ys []float64, reg Regression) float64 {
	n := len(xs)
	if n <= 2 {
		return 0
	}
	mx := stat.Mean(xs, nil)
	var ssr, sxx float64
	for i := range xs {
		e := ys[i] - reg.Predict(xs[i])
		ssr += e * e
		d := xs[i] - mx
		sxx += d * d
	}
	return math.Sqrt(ssr/float64(n-2)) / math.Sqrt(sxx)
}

// Trendline samples the fitted line at n evenly spaced points across [lo, hi].
func Trendline(reg Regression, lo, hi float64, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range xs {
		xs[i] = lo + float64(i)*step
		ys[i] = reg.Predict(xs[i])
	}
	xs[n-1] = hi
	ys[n-1] = reg.Predict(hi)
	return xs, ys
}

// Strength buckets |r| into a human label.
func Strength(r float64) string {
	a := math.Abs(r)
	switch {
	case a > 0.7:
		return "strong"
	case a > 0.4:
		return "moderate"
	default:
		return "weak"
	}
}

// Stats is a describe-style summary of a sample.
type Stats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Describe summarizes values, ignoring NaN. Quartiles interpolate linearly between
// order statistics. An empty input yields a zero Count and NaN statistics.
func Describe(values []float64) Stats {
	var v []float64
	for _, x := range values {
		if !math.IsNaN(x) {
			v = append(v, x)
		}
	}
	if len(v) == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	}
	sort.Float64s(v)
	st := Stats{
		Count:  len(v),
		Mean:   stat.Mean(v, nil),
		Min:    v[0],
		Q1:     quantile(v, 0.25),
		Median: quantile(v, 0.5),
		Q3:     quantile(v, 0.75),
		Max:    v[len(v)-1],
	}
	if len(v) > 1 {
		st.Std = stat.StdDev(v, nil)
	} else {
		st.Std = math.NaN()
	}
	return st
}

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	// Pairs holds the number of shared index values behind each cell.
	Pairs [][]int
}

// Matrix correlates every pair of series over the index values they share.
// Cells with fewer than two shared points or a constant side are NaN.
func Matrix(ss ...series.Series) (*CorrMatrix, error) {
	if len(ss) < 2 {
		return nil, series.ErrInsufficientData
	}
	n := len(ss)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n), Pairs: make([][]int, n)}
	for i, s := range ss {
		m.Columns[i] = s.Name
		m.Values[i] = make([]float64, n)
		m.Pairs[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		m.Values[i][i] = 1
		m.Pairs[i][i] = ss[i].DropMissing().Len()
		for j := i + 1; j < n; j++ {
			xs, ys := shared(ss[i], ss[j])
			r := math.NaN()
			if len(xs) >= 2 && stat.Variance(xs, nil) > 0 && stat.Variance(ys, nil) > 0 {
				r = stat.Correlation(xs, ys, nil)
				r = math.Max(-1, math.Min(1, r))
			}
			m.Values[i][j], m.Values[j][i] = r, r
			m.Pairs[i][j], m.Pairs[j][i] = len(xs), len(xs)
		}
	}
	return m, nil
}

// shared returns the values of a and b at the index values both define.
func shared(a, b series.Series) (xs, ys []float64) {
	a = a.DropMissing().Sorted()
	for i, ix := range a.Index {
		if v, ok := b.Lookup(ix); ok && !math.IsNaN(v) {
			xs = append(xs, a.Values[i])
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// Strongest returns the column most correlated (by |r|) with target.
func (m *CorrMatrix) Strongest(target string) (name string, r float64, ok bool) {
	ti := -1
	for i, c := range m.Columns {
		if c == target {
			ti = i
			break
		}
	}
	if ti < 0 {
		return "", 0, false
	}
	best := -1.0
	for j, c := range m.Columns {
		v := m.Values[ti][j]
		if j == ti || math.IsNaN(v) {
			continue
		}
		if a := math.Abs(v); a > best {
			best, name, r, ok = a, c, v, true
		}
	}
	return name, r, ok
}

// TopPairs lists off-diagonal pairs ordered by |r|, at most limit entries.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.IsNaN(m.Values[i][j]) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j], N: m.Pairs[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
	// N is the number of shared points.
	N int
}
