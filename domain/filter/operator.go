package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator is a closed set of comparison operators for filter rules
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
)

var operatorSymbols = [...]string{
	OpEqual:        "=",
	OpNotEqual:     "≠",
	OpGreater:      ">",
	OpLess:         "<",
	OpGreaterEqual: "≥",
	OpLessEqual:    "≤",
}

// ASCII spellings accepted by the statistics service alongside the canonical symbols
var operatorAliases = map[string]Operator{
	"==": OpEqual,
	"!=": OpNotEqual,
	">=": OpGreaterEqual,
	"<=": OpLessEqual,
}

// evaluation table: lhs is the row value, rhs the rule value
var operatorEval = [...]func(lhs, rhs float64) bool{
	OpEqual:        func(l, r float64) bool { return l == r },
	OpNotEqual:     func(l, r float64) bool { return l != r },
	OpGreater:      func(l, r float64) bool { return l > r },
	OpLess:         func(l, r float64) bool { return l < r },
	OpGreaterEqual: func(l, r float64) bool { return l >= r },
	OpLessEqual:    func(l, r float64) bool { return l <= r },
}

// Operators lists every operator in display order
func Operators() []Operator {
	return []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual}
}

// Valid reports whether op is one of the defined operators
func (op Operator) Valid() bool {
	return op >= OpEqual && op <= OpLessEqual
}

// String returns the canonical symbol
func (op Operator) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorSymbols[op]
}

// Evaluate applies the operator to a row value and a rule value
func (op Operator) Evaluate(lhs, rhs float64) bool {
	if !op.Valid() {
		return false
	}
	return operatorEval[op](lhs, rhs)
}

// ParseOperator accepts canonical symbols and their ASCII aliases
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for op, sym := range operatorSymbols {
		if s == sym {
			return Operator(op), nil
		}
	}
	if op, ok := operatorAliases[s]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown filter operator %q", s)
}

func (op Operator) MarshalJSON() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid operator %d", int(op))
	}
	return json.Marshal(op.String())
}

func (op *Operator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOperator(s)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// CombineMode joins every rule of a set with the same Boolean connective
type CombineMode string

const (
	And CombineMode = "AND"
	Or  CombineMode = "OR"
)

// ParseCombineMode is case-insensitive
func ParseCombineMode(s string) (CombineMode, error) {
	switch CombineMode(strings.ToUpper(strings.TrimSpace(s))) {
	case And:
		return And, nil
	case Or:
		return Or, nil
	}
	return "", fmt.Errorf("filter logic must be AND or OR, got %q", s)
}
