package result

import "math"

// PairCell is one entry of a correlation matrix. A nil field means the value
// could not be computed, which is distinct from zero.
type PairCell struct {
	Coefficient *float64 `json:"r"`
	PValue      *float64 `json:"p_value"`
	N           *int     `json:"n"`
}

// Float returns a pointer to v, or nil for NaN and infinities
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}

// Computable reports whether the cell carries a coefficient
func (c PairCell) Computable() bool {
	return c.Coefficient != nil
}
