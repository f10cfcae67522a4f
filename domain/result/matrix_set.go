package result

import (
	"fmt"
	"slices"

	"biometric/domain/selection"
)

// MatrixSet is one correlation response: a matrix per (segment, method)
type MatrixSet struct {
	segmentsCommon
	methods []selection.Method
	tables  map[string]map[selection.Method]*Matrix
}

// NewMatrixSet validates that every listed segment carries every listed method
func NewMatrixSet(segments []string, methods []selection.Method, tables map[string]map[selection.Method]*Matrix, analyzed []string, segmentBy string) (*MatrixSet, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("response lists no segments")
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("response lists no methods")
	}

	copied := make(map[string]map[selection.Method]*Matrix, len(segments))
	for _, seg := range segments {
		byMethod, ok := tables[seg]
		if !ok {
			return nil, fmt.Errorf("segment %q has no tables", seg)
		}
		inner := make(map[selection.Method]*Matrix, len(methods))
		for _, m := range methods {
			matrix, ok := byMethod[m]
			if !ok || matrix == nil {
				return nil, fmt.Errorf("segment %q has no %s matrix", seg, m)
			}
			inner[m] = matrix
		}
		copied[seg] = inner
	}

	return &MatrixSet{
		segmentsCommon: segmentsCommon{
			segments:  slices.Clone(segments),
			analyzed:  slices.Clone(analyzed),
			segmentBy: segmentBy,
		},
		methods: slices.Clone(methods),
		tables:  copied,
	}, nil
}

func (s *MatrixSet) Kind() selection.Kind { return selection.KindCorrelation }

func (s *MatrixSet) Methods() []selection.Method { return slices.Clone(s.methods) }

// Table returns the matrix for a segment and method
func (s *MatrixSet) Table(segment string, method selection.Method) (*Matrix, bool) {
	m, ok := s.tables[segment][method]
	return m, ok
}
