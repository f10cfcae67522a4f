// Package testkit is an in-process stand-in for the remote statistics
// service: synthetic cohorts per session, the same endpoints, the same wire
// format. Tests and cmd/dev run against it.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
)

// CohortConfig configures the synthetic cohort generator
type CohortConfig struct {
	Rows        int     `json:"rows"`
	Seed        int64   `json:"seed"`
	MissingRate float64 `json:"missing_rate"`
}

// DefaultCohortConfig returns a medium cohort with a little missing data
func DefaultCohortConfig() CohortConfig {
	return CohortConfig{Rows: 400, Seed: 42, MissingRate: 0.02}
}

// Dataset is a column-oriented table. Missing numeric values are NaN,
// missing categories are "".
type Dataset struct {
	Numeric     map[string][]float64
	Categorical map[string][]string
	rows        int
}

// NewDataset builds a dataset from columns of equal length
func NewDataset(numeric map[string][]float64, categorical map[string][]string) (*Dataset, error) {
	rows := -1
	check := func(name string, n int) error {
		if rows == -1 {
			rows = n
		}
		if n != rows {
			return fmt.Errorf("column %q has %d rows, expected %d", name, n, rows)
		}
		return nil
	}
	for name, v := range numeric {
		if err := check(name, len(v)); err != nil {
			return nil, err
		}
	}
	for name, v := range categorical {
		if err := check(name, len(v)); err != nil {
			return nil, err
		}
	}
	if rows < 0 {
		rows = 0
	}
	if numeric == nil {
		numeric = map[string][]float64{}
	}
	if categorical == nil {
		categorical = map[string][]string{}
	}
	return &Dataset{Numeric: numeric, Categorical: categorical, rows: rows}, nil
}

func (d *Dataset) Rows() int { return d.rows }

// Columns lists every column name, sorted
func (d *Dataset) Columns() []string {
	cols := make([]string, 0, len(d.Numeric)+len(d.Categorical))
	for c := range d.Numeric {
		cols = append(cols, c)
	}
	for c := range d.Categorical {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (d *Dataset) has(column string) bool {
	_, num := d.Numeric[column]
	_, cat := d.Categorical[column]
	return num || cat
}

// value is the row lookup used by filter rules; categories have no numeric value
func (d *Dataset) value(column string, row int) (float64, bool) {
	col, ok := d.Numeric[column]
	if !ok || math.IsNaN(col[row]) {
		return 0, false
	}
	return col[row], true
}

// label renders a row's value of a grouping column
func (d *Dataset) label(column string, row int) string {
	if col, ok := d.Categorical[column]; ok {
		return col[row]
	}
	if col, ok := d.Numeric[column]; ok && !math.IsNaN(col[row]) {
		return fmt.Sprintf("%g", col[row])
	}
	return ""
}

// subset keeps the given rows
func (d *Dataset) subset(rows []int) *Dataset {
	out := &Dataset{
		Numeric:     make(map[string][]float64, len(d.Numeric)),
		Categorical: make(map[string][]string, len(d.Categorical)),
		rows:        len(rows),
	}
	for name, col := range d.Numeric {
		v := make([]float64, len(rows))
		for i, r := range rows {
			v[i] = col[r]
		}
		out.Numeric[name] = v
	}
	for name, col := range d.Categorical {
		v := make([]string, len(rows))
		for i, r := range rows {
			v[i] = col[r]
		}
		out.Categorical[name] = v
	}
	return out
}

// levels lists the distinct non-empty labels of a column, sorted
func (d *Dataset) levels(column string) []string {
	seen := map[string]bool{}
	for r := 0; r < d.rows; r++ {
		if l := d.label(column, r); l != "" {
			seen[l] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// GenerateCohort draws a biometric cohort: correlated continuous measures
// (age, bmi, glucose, sbp, ldl, hdl) and categorical columns (sex, arm, smoker)
func GenerateCohort(cfg CohortConfig) *Dataset {
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultCohortConfig().Rows
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := cfg.Rows

	num := map[string][]float64{
		"age": make([]float64, n), "bmi": make([]float64, n), "glucose": make([]float64, n),
		"sbp": make([]float64, n), "ldl": make([]float64, n), "hdl": make([]float64, n),
	}
	cat := map[string][]string{
		"sex": make([]string, n), "arm": make([]string, n), "smoker": make([]string, n),
	}

	for i := 0; i < n; i++ {
		age := clamp(48+rng.NormFloat64()*14, 18, 90)
		bmi := clamp(22+0.08*age+rng.NormFloat64()*3.5, 15, 55)
		treated := rng.Float64() < 0.5
		glucose := 60 + 0.35*age + 1.6*bmi + rng.NormFloat64()*9
		if treated {
			glucose -= 8
		}
		sbp := 92 + 0.55*age + 0.7*bmi + rng.NormFloat64()*10
		ldl := 85 + 0.6*age + rng.NormFloat64()*25
		hdl := clamp(70-0.6*bmi+rng.NormFloat64()*8, 20, 110)

		num["age"][i] = math.Round(age)
		num["bmi"][i] = round(bmi, 1)
		num["glucose"][i] = round(glucose, 1)
		num["sbp"][i] = math.Round(sbp)
		num["ldl"][i] = round(ldl, 1)
		num["hdl"][i] = round(hdl, 1)

		cat["sex"][i] = pick(rng, "F", "M")
		cat["arm"][i] = "Control"
		if treated {
			cat["arm"][i] = "Treatment"
		}
		cat["smoker"][i] = "no"
		if rng.Float64() < 0.22 {
			cat["smoker"][i] = "yes"
		}
	}

	if cfg.MissingRate > 0 {
		for _, name := range []string{"bmi", "glucose", "ldl", "hdl"} {
			for i := range num[name] {
				if rng.Float64() < cfg.MissingRate {
					num[name][i] = math.NaN()
				}
			}
		}
	}

	ds, _ := NewDataset(num, cat)
	return ds
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
