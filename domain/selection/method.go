package selection

import (
	"fmt"
	"strings"
)

// Kind is the type of statistical view a selection drives
type Kind string

const (
	KindCorrelation Kind = "correlation"
	KindSmartTable  Kind = "smart_table"
	KindFrequency   Kind = "frequency"
)

// ParseKind validates a view kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCorrelation, KindSmartTable, KindFrequency:
		return k, nil
	}
	return "", fmt.Errorf("unknown view kind %q", s)
}

// MinimumVariables is the smallest selection a request is issued for
func (k Kind) MinimumVariables() int {
	if k == KindCorrelation {
		return 2
	}
	return 1
}

// Title is the human label used in exports
func (k Kind) Title() string {
	switch k {
	case KindCorrelation:
		return "Correlation matrix"
	case KindSmartTable:
		return "Descriptive statistics"
	case KindFrequency:
		return "Frequency table"
	}
	return string(k)
}

// Method identifies the computation the aggregator performs
type Method string

const (
	Pearson     Method = "pearson"
	Spearman    Method = "spearman"
	Kendall     Method = "kendall"
	Descriptive Method = "descriptive"
	Frequency   Method = "frequency"
)

// CorrelationMethods lists the comparable correlation methods in display order
func CorrelationMethods() []Method {
	return []Method{Pearson, Spearman, Kendall}
}

// IsCorrelation reports whether m is pearson, spearman or kendall
func (m Method) IsCorrelation() bool {
	return m == Pearson || m == Spearman || m == Kendall
}

// Label is the capitalised display name
func (m Method) Label() string {
	s := string(m)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseMethod accepts a method name; "all" and "comparar_todos" are not methods
// and are handled by the controller's compare mode.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Pearson, Spearman, Kendall, Descriptive, Frequency:
		return m, nil
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// DefaultMethods returns the initial method list for a view kind
func DefaultMethods(k Kind) []Method {
	switch k {
	case KindSmartTable:
		return []Method{Descriptive}
	case KindFrequency:
		return []Method{Frequency}
	}
	return []Method{Pearson}
}
