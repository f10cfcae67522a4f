package testkit

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"biometric/domain/result"
	"biometric/domain/selection"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minPairs is the smallest sample a coefficient is reported for
const minPairs = 3

// complete drops rows where either value is missing
func complete(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// correlate computes one coefficient with its two-sided p-value
func correlate(method selection.Method, x, y []float64) result.PairCell {
	xs, ys := complete(x, y)
	n := len(xs)
	cell := result.PairCell{N: result.Int(n)}
	if n < minPairs {
		return cell
	}

	var r, p float64
	switch method {
	case selection.Spearman:
		r = stat.Correlation(ranks(xs), ranks(ys), nil)
		p = tTestP(r, n)
	case selection.Kendall:
		r = kendallTau(xs, ys)
		p = kendallP(r, n)
	default:
		r = stat.Correlation(xs, ys, nil)
		p = tTestP(r, n)
	}
	cell.Coefficient = result.Float(r)
	if cell.Coefficient != nil {
		cell.PValue = result.Float(p)
	}
	return cell
}

// tTestP is the p-value of r under H0: rho = 0 with n-2 degrees of freedom
func tTestP(r float64, n int) float64 {
	if math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}

// ranks assigns average ranks to ties
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// kendallTau is tau-b, which corrects for ties in either variable
func kendallTau(x, y []float64) float64 {
	var concordant, discordant, tiesX, tiesY float64
	for i := 0; i < len(x); i++ {
		for j := i + 1; j < len(x); j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			switch {
			case dx == 0 && dy == 0:
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case dx*dy > 0:
				concordant++
			default:
				discordant++
			}
		}
	}
	den := math.Sqrt((concordant + discordant + tiesX) * (concordant + discordant + tiesY))
	if den == 0 {
		return math.NaN()
	}
	return (concordant - discordant) / den
}

// kendallP uses the normal approximation of tau under H0
func kendallP(tau float64, n int) float64 {
	if math.IsNaN(tau) {
		return math.NaN()
	}
	nf := float64(n)
	z := 3 * tau * math.Sqrt(nf*(nf-1)) / math.Sqrt(2*(2*nf+5))
	return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
}

// percentile interpolates the empirical distribution of sorted data; p is in percent
func percentile(sorted []float64, p float64) (float64, error) {
	if len(sorted) == 0 {
		return math.NaN(), stats.EmptyInputErr
	}
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return math.NaN(), fmt.Errorf("percentile %g is outside (0, 100]", p)
	}
	return stat.Quantile(p/100, stat.LinInterp, sorted, nil), nil
}

// describe summarises one numeric column
func describe(name string, values []float64, custom []float64) (result.ColumnStats, error) {
	data := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	cs := result.ColumnStats{Variable: name, N: len(data), Missing: len(values) - len(data)}
	if len(data) == 0 {
		return cs, nil
	}
	sort.Float64s(data)

	mean, err := stats.Mean(data)
	if err != nil {
		return cs, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return cs, err
	}
	mode, err := stats.Mode(data)
	if err != nil {
		return cs, err
	}
	sum, err := stats.Sum(data)
	if err != nil {
		return cs, err
	}
	minV, maxV := data[0], data[len(data)-1]

	ladder := map[float64]float64{}
	for _, p := range []float64{5, 25, 75, 95} {
		v, err := percentile(data, p)
		if err != nil {
			return cs, err
		}
		ladder[p] = v
	}
	q1, q3 := ladder[25], ladder[75]

	cs.CentralTendency = result.CentralTendency{
		Mean:         result.Float(mean),
		Median:       result.Float(median),
		Mode:         result.Mode(mode),
		Sum:          result.Float(sum),
		TrimmedMean5: result.Float(trimmedMean(data, 0.05)),
	}
	if minV > 0 {
		if gm, err := stats.GeometricMean(data); err == nil {
			cs.CentralTendency.GeometricMean = result.Float(gm)
		}
	}

	cs.Dispersion = result.Dispersion{
		Min:   result.Float(minV),
		Max:   result.Float(maxV),
		Range: result.Float(maxV - minV),
		IQR:   result.Float(q3 - q1),
	}
	cs.Percentiles = result.Percentiles{
		Q1:  result.Float(q1),
		Q3:  result.Float(q3),
		P5:  result.Float(ladder[5]),
		P95: result.Float(ladder[95]),
	}

	if len(data) >= 2 {
		sd, err := stats.StandardDeviationSample(data)
		if err != nil {
			return cs, err
		}
		variance, err := stats.SampleVariance(data)
		if err != nil {
			return cs, err
		}
		cs.Dispersion.StdDev = result.Float(sd)
		cs.Dispersion.Variance = result.Float(variance)
		cs.Dispersion.SEM = result.Float(sd / math.Sqrt(float64(len(data))))
		if mean != 0 {
			cs.Dispersion.CV = result.Float(sd / math.Abs(mean) * 100)
		}
		if len(data) >= 3 && sd > 0 {
			cs.Shape.Skewness = result.Float(skewness(data, mean, sd))
		}
		if len(data) >= 4 && sd > 0 {
			cs.Shape.Kurtosis = result.Float(excessKurtosis(data, mean, sd))
		}
		if len(data) >= 8 && sd > 0 {
			cs.Shape.NormalityTest = "D'Agostino K2"
			cs.Shape.NormalityPValue = result.Float(dagostinoK2(data, mean, sd))
			cs.Shape.TestUsed = "dagostino"
		}
	}

	if len(custom) > 0 {
		cs.CustomPercentiles = make(map[string]float64, len(custom))
		for _, p := range custom {
			v, err := percentile(data, p)
			if err != nil {
				return cs, err
			}
			cs.CustomPercentiles[fmt.Sprintf("p%g", p)] = v
		}
	}
	return cs, nil
}

func trimmedMean(data []float64, fraction float64) float64 {
	sorted := slices.Clone(data)
	sort.Float64s(sorted)
	cut := int(math.Floor(float64(len(sorted)) * fraction))
	if 2*cut >= len(sorted) {
		cut = 0
	}
	m, err := stats.Mean(sorted[cut : len(sorted)-cut])
	if err != nil {
		return math.NaN()
	}
	return m
}

// skewness is the adjusted Fisher-Pearson coefficient
func skewness(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

func excessKurtosis(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d * d
	}
	k := sum / n
	if n > 3 {
		k = k*(n-1)/((n-2)*(n-3)) + 6/(n+1)
	}
	return k
}

// dagostinoK2 combines the skewness and kurtosis z-scores into a chi-squared(2) statistic
func dagostinoK2(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	g1 := skewness(data, mean, sd)
	g2 := excessKurtosis(data, mean, sd) + 3

	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := (3 * (n*n + 27*n - 70) * (n + 1) * (n + 3)) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 1 {
		return 1
	}
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	ay := y / alpha
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (g2 - e) / math.Sqrt(v)
	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if a <= 4 {
		return 1
	}
	den := 1 + x*math.Sqrt(2/(a-4))
	if den <= 0 {
		return 0
	}
	z2 := ((1 - 2/(9*a)) - math.Pow((1-2/a)/den, 1.0/3.0)) / math.Sqrt(2/(9*a))

	chi2 := distuv.ChiSquared{K: 2}
	return 1 - chi2.CDF(z1*z1+z2*z2)
}

// frequencies counts the categories of one column, most frequent first
func frequencies(name string, labels []string) result.FrequencyTable {
	counts := map[string]int{}
	total := 0
	for _, l := range labels {
		if l == "" {
			continue
		}
		counts[l]++
		total++
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})

	table := result.FrequencyTable{Variable: name, Total: total}
	cumulative := 0
	for _, c := range cats {
		cumulative += counts[c]
		table.Rows = append(table.Rows, result.FrequencyRow{
			Category:          c,
			Count:             counts[c],
			Percent:           round(100*float64(counts[c])/float64(total), 2),
			CumulativePercent: round(100*float64(cumulative)/float64(total), 2),
		})
	}
	return table
}
