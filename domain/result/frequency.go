package result

import (
	"fmt"
	"slices"

	"biometric/domain/selection"
)

// FrequencyRow is one category of a frequency table
type FrequencyRow struct {
	Category          string  `json:"categoria"`
	Count             int     `json:"frecuencia"`
	Percent           float64 `json:"porcentaje"`
	CumulativePercent float64 `json:"porcentaje_acumulado"`
}

// FrequencyTable is the distribution of one categorical variable
type FrequencyTable struct {
	Variable string         `json:"variable"`
	Rows     []FrequencyRow `json:"rows"`
	Total    int            `json:"total"`
}

// FrequencySet is one frequency response: tables per segment
type FrequencySet struct {
	segmentsCommon
	tables map[string][]FrequencyTable
}

// NewFrequencySet validates that every listed segment has tables
func NewFrequencySet(segments []string, tables map[string][]FrequencyTable, segmentBy string) (*FrequencySet, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("response lists no segments")
	}
	copied := make(map[string][]FrequencyTable, len(segments))
	var analyzed []string
	for i, seg := range segments {
		t, ok := tables[seg]
		if !ok {
			return nil, fmt.Errorf("segment %q has no tables", seg)
		}
		copied[seg] = slices.Clone(t)
		if i == 0 {
			for _, ft := range t {
				analyzed = append(analyzed, ft.Variable)
			}
		}
	}
	return &FrequencySet{
		segmentsCommon: segmentsCommon{
			segments:  slices.Clone(segments),
			analyzed:  analyzed,
			segmentBy: segmentBy,
		},
		tables: copied,
	}, nil
}

func (s *FrequencySet) Kind() selection.Kind { return selection.KindFrequency }

func (s *FrequencySet) Methods() []selection.Method { return []selection.Method{selection.Frequency} }

// Tables returns the tables of one segment in variable order
func (s *FrequencySet) Tables(segment string) []FrequencyTable {
	return slices.Clone(s.tables[segment])
}
