package result

import (
	"encoding/json"
	"fmt"
	"slices"

	"biometric/domain/selection"
)

// ColumnStats is one smart-table column summary, grouped the way the service groups it
type ColumnStats struct {
	Variable          string             `json:"variable"`
	N                 int                `json:"n"`
	Missing           int                `json:"missing"`
	CentralTendency   CentralTendency    `json:"central_tendency"`
	Dispersion        Dispersion         `json:"dispersion"`
	Percentiles       Percentiles        `json:"percentiles"`
	Shape             Shape              `json:"shape"`
	CustomPercentiles map[string]float64 `json:"custom_percentiles_data,omitempty"`
}

type CentralTendency struct {
	Mean          *float64 `json:"mean"`
	Median        *float64 `json:"median"`
	Mode          Mode     `json:"mode"`
	TrimmedMean5  *float64 `json:"trimmed_mean_5"`
	Sum           *float64 `json:"sum"`
	GeometricMean *float64 `json:"geometric_mean"`
}

type Dispersion struct {
	StdDev   *float64 `json:"std_dev"`
	Variance *float64 `json:"variance"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Range    *float64 `json:"range"`
	IQR      *float64 `json:"iqr"`
	CV       *float64 `json:"cv"`
	SEM      *float64 `json:"sem"`
}

type Percentiles struct {
	Q1      *float64           `json:"q1"`
	Q3      *float64           `json:"q3"`
	P5      *float64           `json:"p5"`
	P95     *float64           `json:"p95"`
	Deciles map[string]float64 `json:"deciles,omitempty"`
}

type Shape struct {
	Skewness        *float64 `json:"skewness"`
	Kurtosis        *float64 `json:"kurtosis"`
	NormalityTest   string   `json:"normality_test"`
	NormalityPValue *float64 `json:"normality_p_value"`
	TestUsed        string   `json:"test_used,omitempty"`
}

// Mode is one or several modal values; the service sends a number or a list
type Mode []float64

func (m *Mode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	var single float64
	if err := json.Unmarshal(data, &single); err == nil {
		*m = Mode{single}
		return nil
	}
	var many []float64
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("mode must be a number or a list of numbers: %w", err)
	}
	*m = many
	return nil
}

// DescriptiveSet is one smart-table response
type DescriptiveSet struct {
	segmentsCommon
	stats map[string]map[string]ColumnStats
}

// NewDescriptiveSet validates that every listed segment has statistics
func NewDescriptiveSet(segments []string, stats map[string]map[string]ColumnStats, analyzed []string, segmentBy string) (*DescriptiveSet, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("response lists no segments")
	}
	copied := make(map[string]map[string]ColumnStats, len(segments))
	for _, seg := range segments {
		cols, ok := stats[seg]
		if !ok {
			return nil, fmt.Errorf("segment %q has no statistics", seg)
		}
		inner := make(map[string]ColumnStats, len(cols))
		for k, v := range cols {
			inner[k] = v
		}
		copied[seg] = inner
	}
	return &DescriptiveSet{
		segmentsCommon: segmentsCommon{
			segments:  slices.Clone(segments),
			analyzed:  slices.Clone(analyzed),
			segmentBy: segmentBy,
		},
		stats: copied,
	}, nil
}

func (s *DescriptiveSet) Kind() selection.Kind { return selection.KindSmartTable }

func (s *DescriptiveSet) Methods() []selection.Method { return []selection.Method{selection.Descriptive} }

// Column returns the summary of one column in one segment
func (s *DescriptiveSet) Column(segment, column string) (ColumnStats, bool) {
	st, ok := s.stats[segment][column]
	return st, ok
}
