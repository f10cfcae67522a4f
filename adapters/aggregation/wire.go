package aggregation

import (
	"fmt"
	"slices"

	"biometric/domain/filter"
	"biometric/domain/result"
	"biometric/domain/selection"
)

// wireFilter is one filter rule as the service expects it
type wireFilter struct {
	Column   string          `json:"column"`
	Operator filter.Operator `json:"operator"`
	Value    float64         `json:"value"`
}

type correlationRequest struct {
	SessionID   string             `json:"session_id"`
	Columns     []string           `json:"columns"`
	Methods     []selection.Method `json:"methods"`
	GroupBy     *string            `json:"group_by"`
	Filters     []wireFilter       `json:"filters"`
	FilterLogic filter.CombineMode `json:"filter_logic"`
}

type smartTableRequest struct {
	SessionID         string             `json:"session_id"`
	Columns           []string           `json:"columns"`
	CustomPercentiles []float64          `json:"custom_percentiles,omitempty"`
	GroupBy           *string            `json:"group_by"`
	Filters           []wireFilter       `json:"filters"`
	FilterLogic       filter.CombineMode `json:"filter_logic"`
}

type frequencyRequest struct {
	SessionID   string             `json:"session_id"`
	Variables   []string           `json:"variables"`
	SegmentBy   *string            `json:"segment_by"`
	Filters     []wireFilter       `json:"filters"`
	FilterLogic filter.CombineMode `json:"filter_logic"`
}

// filtersOf sends only the rules that take effect; a disabled set is []
func filtersOf(rs filter.RuleSet) ([]wireFilter, filter.CombineMode) {
	effective := rs.Effective()
	out := make([]wireFilter, 0, len(effective))
	for _, r := range effective {
		out = append(out, wireFilter{Column: r.Column, Operator: r.Operator, Value: r.Value})
	}
	return out, rs.Mode()
}

func groupBy(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newCorrelationRequest(sel selection.State) correlationRequest {
	filters, logic := filtersOf(sel.Filters)
	return correlationRequest{
		SessionID:   sel.SessionID,
		Columns:     nonNilStrings(sel.Variables),
		Methods:     sel.Methods,
		GroupBy:     groupBy(sel.SegmentBy),
		Filters:     filters,
		FilterLogic: logic,
	}
}

func newSmartTableRequest(sel selection.State) smartTableRequest {
	filters, logic := filtersOf(sel.Filters)
	return smartTableRequest{
		SessionID:         sel.SessionID,
		Columns:           nonNilStrings(sel.Variables),
		CustomPercentiles: sel.CustomPercentiles,
		GroupBy:           groupBy(sel.SegmentBy),
		Filters:           filters,
		FilterLogic:       logic,
	}
}

func newFrequencyRequest(sel selection.State) frequencyRequest {
	filters, logic := filtersOf(sel.Filters)
	return frequencyRequest{
		SessionID:   sel.SessionID,
		Variables:   nonNilStrings(sel.Variables),
		SegmentBy:   groupBy(sel.SegmentBy),
		Filters:     filters,
		FilterLogic: logic,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// wireCell uses float pointers so null and missing stay distinguishable from 0
type wireCell struct {
	R             *float64 `json:"r"`
	PValue        *float64 `json:"p_value"`
	N             *int     `json:"n"`
	IsSignificant *bool    `json:"is_significant,omitempty"`
}

type wireMatrix struct {
	Method    selection.Method               `json:"method"`
	Variables []string                       `json:"variables"`
	Matrix    map[string]map[string]wireCell `json:"matrix"`
}

type correlationResponse struct {
	Success         bool                                       `json:"success"`
	SessionID       string                                     `json:"session_id"`
	Segments        []string                                   `json:"segments"`
	Tables          map[string]map[selection.Method]wireMatrix `json:"tables"`
	AnalyzedColumns []string                                   `json:"analyzed_columns"`
	SegmentBy       *string                                    `json:"segment_by"`
}

type smartTableResponse struct {
	Success         bool                                     `json:"success"`
	SessionID       string                                   `json:"session_id"`
	Segments        []string                                 `json:"segments"`
	GroupBy         *string                                  `json:"group_by"`
	AnalyzedColumns []string                                 `json:"analyzed_columns"`
	Statistics      map[string]map[string]result.ColumnStats `json:"statistics"`
}

type frequencyResponse struct {
	Segments  []string                           `json:"segments"`
	SegmentBy *string                            `json:"segment_by"`
	Tables    map[string][]result.FrequencyTable `json:"tables"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toMatrixSet keeps the method order of the request so tabs are stable
func (r correlationResponse) toMatrixSet(requested []selection.Method) (*result.MatrixSet, error) {
	methods := requested
	if len(methods) == 0 && len(r.Segments) > 0 {
		for m := range r.Tables[r.Segments[0]] {
			methods = append(methods, m)
		}
		slices.Sort(methods)
	}

	tables := make(map[string]map[selection.Method]*result.Matrix, len(r.Tables))
	for seg, byMethod := range r.Tables {
		tables[seg] = make(map[selection.Method]*result.Matrix, len(byMethod))
		for m, wm := range byMethod {
			vars := wm.Variables
			if len(vars) == 0 {
				vars = r.AnalyzedColumns
			}
			cells := make(map[string]map[string]result.PairCell, len(wm.Matrix))
			for row, cols := range wm.Matrix {
				inner := make(map[string]result.PairCell, len(cols))
				for col, c := range cols {
					inner[col] = toPairCell(c)
				}
				cells[row] = inner
			}
			tables[seg][m] = result.NewMatrix(m, vars, cells)
		}
	}

	set, err := result.NewMatrixSet(r.Segments, methods, tables, r.AnalyzedColumns, deref(r.SegmentBy))
	if err != nil {
		return nil, fmt.Errorf("correlation response: %w", err)
	}
	return set, nil
}

func toPairCell(c wireCell) result.PairCell {
	pc := result.PairCell{N: c.N}
	if c.R != nil {
		pc.Coefficient = result.Float(*c.R)
	}
	if c.PValue != nil {
		pc.PValue = result.Float(*c.PValue)
	}
	return pc
}
