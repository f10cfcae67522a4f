package result

import (
	"fmt"
	"math"
	"slices"

	"biometric/domain/selection"
)

// symmetryTolerance absorbs float noise from the service's own serialisation
const symmetryTolerance = 1e-9

// Matrix is a square correlation matrix for one method and one segment.
// Row and column order is Variables().
type Matrix struct {
	method    selection.Method
	variables []string
	cells     map[string]map[string]PairCell
}

// NewMatrix copies its inputs; the matrix may hold only one traversal direction
func NewMatrix(method selection.Method, variables []string, cells map[string]map[string]PairCell) *Matrix {
	copied := make(map[string]map[string]PairCell, len(cells))
	for row, cols := range cells {
		inner := make(map[string]PairCell, len(cols))
		for col, cell := range cols {
			inner[col] = cell
		}
		copied[row] = inner
	}
	return &Matrix{
		method:    method,
		variables: slices.Clone(variables),
		cells:     copied,
	}
}

func (m *Matrix) Method() selection.Method { return m.method }

// Variables returns the row/column order
func (m *Matrix) Variables() []string { return slices.Clone(m.variables) }

// Cell looks up (row, col) and falls back to (col, row)
func (m *Matrix) Cell(row, col string) (PairCell, bool) {
	if cell, ok := m.cells[row][col]; ok {
		return cell, true
	}
	if cell, ok := m.cells[col][row]; ok {
		return cell, true
	}
	return PairCell{}, false
}

// CheckSymmetry returns an error naming the first pair whose two stored
// directions disagree on the coefficient
func (m *Matrix) CheckSymmetry() error {
	for i, a := range m.variables {
		for _, b := range m.variables[i+1:] {
			ab, okAB := m.cells[a][b]
			ba, okBA := m.cells[b][a]
			if !okAB || !okBA {
				continue
			}
			if !sameCoefficient(ab.Coefficient, ba.Coefficient) {
				return fmt.Errorf("%s matrix is not symmetric for (%s, %s)", m.method, a, b)
			}
		}
	}
	return nil
}

func sameCoefficient(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= symmetryTolerance
}
