package app

import (
	"context"
	"testing"
	"time"

	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDebounce = 40 * time.Millisecond

func pair(r, p float64, n int) result.PairCell {
	return result.PairCell{Coefficient: result.Float(r), PValue: result.Float(p), N: result.Int(n)}
}

// matrixSet builds a correlation result over vars for every segment
func matrixSet(t *testing.T, vars []string, segments ...string) *result.MatrixSet {
	t.Helper()
	cells := map[string]map[string]result.PairCell{}
	for i, a := range vars {
		cells[a] = map[string]result.PairCell{}
		for _, b := range vars[i+1:] {
			cells[a][b] = pair(0.5, 0.01, 50)
		}
	}
	tables := map[string]map[selection.Method]*result.Matrix{}
	for _, s := range segments {
		tables[s] = map[selection.Method]*result.Matrix{selection.Pearson: result.NewMatrix(selection.Pearson, vars, cells)}
	}
	set, err := result.NewMatrixSet(segments, []selection.Method{selection.Pearson}, tables, vars, "")
	require.NoError(t, err)
	return set
}

// mockPort is a testify mock of the aggregation service
type mockPort struct {
	mock.Mock
}

func (m *mockPort) Correlations(ctx context.Context, sel selection.State) (*result.MatrixSet, error) {
	args := m.Called(ctx, sel)
	set, _ := args.Get(0).(*result.MatrixSet)
	return set, args.Error(1)
}

func (m *mockPort) SmartTable(ctx context.Context, sel selection.State) (*result.DescriptiveSet, error) {
	args := m.Called(ctx, sel)
	set, _ := args.Get(0).(*result.DescriptiveSet)
	return set, args.Error(1)
}

func (m *mockPort) Frequencies(ctx context.Context, sel selection.State) (*result.FrequencySet, error) {
	args := m.Called(ctx, sel)
	set, _ := args.Get(0).(*result.FrequencySet)
	return set, args.Error(1)
}

// gatedCall is one request held until the test replies
type gatedCall struct {
	ctx   context.Context
	sel   selection.State
	reply chan gatedReply
}

type gatedReply struct {
	set *result.MatrixSet
	err error
}

func (c *gatedCall) respond(set *result.MatrixSet, err error) {
	c.reply <- gatedReply{set: set, err: err}
}

// gatedPort hands every call to the test. With ignoreCancel it keeps waiting
// for a reply after its context is cancelled, like a server that answers late.
type gatedPort struct {
	calls        chan *gatedCall
	ignoreCancel bool
}

func newGatedPort(ignoreCancel bool) *gatedPort {
	return &gatedPort{calls: make(chan *gatedCall, 8), ignoreCancel: ignoreCancel}
}

func (p *gatedPort) Correlations(ctx context.Context, sel selection.State) (*result.MatrixSet, error) {
	call := &gatedCall{ctx: ctx, sel: sel, reply: make(chan gatedReply, 1)}
	p.calls <- call
	if p.ignoreCancel {
		r := <-call.reply
		return r.set, r.err
	}
	select {
	case r := <-call.reply:
		return r.set, r.err
	case <-ctx.Done():
		return nil, errors.Cancelled(ctx.Err())
	}
}

func (p *gatedPort) SmartTable(context.Context, selection.State) (*result.DescriptiveSet, error) {
	return nil, errors.AggregationError("not used", nil)
}

func (p *gatedPort) Frequencies(context.Context, selection.State) (*result.FrequencySet, error) {
	return nil, errors.AggregationError("not used", nil)
}

func (p *gatedPort) next(t *testing.T) *gatedCall {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no aggregation request was issued")
		return nil
	}
}

func (p *gatedPort) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case c := <-p.calls:
		t.Fatalf("unexpected aggregation request for %v", c.sel.Variables)
	case <-time.After(within):
	}
}
