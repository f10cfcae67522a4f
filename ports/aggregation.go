package ports

import (
	"context"

	"biometric/domain/result"
	"biometric/domain/selection"
)

// AggregationPort is the remote statistics service. Every call is cancellable
// through ctx; implementations bound each call with their own timeout.
type AggregationPort interface {
	// Correlations computes one matrix per (segment, method)
	Correlations(ctx context.Context, sel selection.State) (*result.MatrixSet, error)
	// SmartTable computes descriptive statistics per (segment, column)
	SmartTable(ctx context.Context, sel selection.State) (*result.DescriptiveSet, error)
	// Frequencies computes category counts per (segment, column)
	Frequencies(ctx context.Context, sel selection.State) (*result.FrequencySet, error)
}

// Aggregate routes a selection to the call for its kind
func Aggregate(ctx context.Context, port AggregationPort, sel selection.State) (result.Snapshot, error) {
	switch sel.Kind {
	case selection.KindSmartTable:
		return nonNil(port.SmartTable(ctx, sel))
	case selection.KindFrequency:
		return nonNil(port.Frequencies(ctx, sel))
	default:
		return nonNil(port.Correlations(ctx, sel))
	}
}

// nonNil keeps a typed nil pointer from becoming a non-nil Snapshot
func nonNil[T result.Snapshot](snap T, err error) (result.Snapshot, error) {
	if err != nil {
		return nil, err
	}
	var zero T
	if any(snap) == any(zero) {
		return nil, nil
	}
	return snap, nil
}
