package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"biometric/domain/core"
	"biometric/domain/filter"
	"biometric/domain/report"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/debounce"
	"biometric/internal/errors"
	"biometric/internal/logging"
	"biometric/ports"

	"go.uber.org/zap"
)

// ErrViewClosed is returned by every mutation after Close
var ErrViewClosed = errors.New("VIEW_CLOSED", "view is closed")

// ViewOptions configures a controller
type ViewOptions struct {
	ID       core.ID
	Debounce time.Duration
	Logger   *zap.Logger
	Exporter *ExportService
	Now      func() time.Time
}

// ViewController owns one open statistical view. Selection changes are
// coalesced by a debounce window into a single aggregation request; each
// request carries the generation it was issued for and its response is
// dropped unless that generation is still current.
type ViewController struct {
	id        core.ID
	port      ports.AggregationPort
	exporter  *ExportService
	logger    *zap.Logger
	now       func() time.Time
	debouncer *debounce.Debouncer

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	sel        selection.State
	snap       result.Snapshot
	tabs       TabSync
	render     RenderMode
	pending    bool
	loading    bool
	errCode    string
	errMsg     string
	generation uint64
	cancel     context.CancelFunc
	subs       map[int]chan ViewModel
	nextSub    int
	closed     bool
}

// NewViewController opens an empty view of the given kind over a dataset session
func NewViewController(port ports.AggregationPort, kind selection.Kind, sessionID string, opts ViewOptions) *ViewController {
	if opts.ID.IsEmpty() {
		opts.ID = core.NewID()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Exporter == nil {
		opts.Exporter = NewExportService(opts.Logger)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DebounceFor(kind, 0, 0)
	}

	ctx, stop := context.WithCancel(context.Background())
	sel := selection.New(kind, sessionID)
	c := &ViewController{
		id:        opts.ID,
		port:      port,
		exporter:  opts.Exporter,
		logger:    logging.OrNop(opts.Logger).Named("view").With(zap.String("view_id", opts.ID.String()), zap.String("kind", string(kind))),
		now:       opts.Now,
		debouncer: debounce.New(opts.Debounce),
		baseCtx:   ctx,
		stop:      stop,
		sel:       sel,
		tabs:      NewTabSync(sel.Methods),
		render:    RenderTabs,
		subs:      map[int]chan ViewModel{},
	}
	return c
}

func (c *ViewController) ID() core.ID { return c.id }

// Snapshot returns the current view model
func (c *ViewController) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return newViewModel(c)
}

// Subscribe returns a channel that always holds the latest view model. Slow
// readers miss intermediate states, never the last one. The channel is closed
// by unsubscribe or Close.
func (c *ViewController) Subscribe() (<-chan ViewModel, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan ViewModel, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- newViewModel(c)

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// SetSession points the view at another uploaded dataset
func (c *ViewController) SetSession(sessionID string) error {
	return c.mutate(func(s *selection.State) error {
		s.SessionID = sessionID
		return nil
	})
}

// SetVariables replaces the selected variables, dropping duplicates
func (c *ViewController) SetVariables(names []string) error {
	return c.mutate(func(s *selection.State) error {
		s.Variables = selection.UniqueVariables(names)
		return nil
	})
}

// ToggleVariable adds the variable if absent and removes it otherwise
func (c *ViewController) ToggleVariable(name string) error {
	return c.mutate(func(s *selection.State) error {
		if i := slices.Index(s.Variables, name); i >= 0 {
			s.Variables = slices.Delete(s.Variables, i, i+1)
			return nil
		}
		s.Variables = selection.UniqueVariables(append(s.Variables, name))
		return nil
	})
}

// SetMethods replaces the requested methods. More than one method switches
// to stacked rendering and back to tabs when a single method remains.
func (c *ViewController) SetMethods(methods []selection.Method) error {
	return c.mutate(func(s *selection.State) error {
		normalized, err := selection.NormalizeMethods(s.Kind, methods)
		if err != nil {
			return err
		}
		s.Methods = normalized
		if len(normalized) == 1 {
			c.render = RenderTabs
		}
		c.tabs.OnMethodsChanged(normalized)
		return nil
	})
}

// CompareAllMethods requests pearson, spearman and kendall side by side
func (c *ViewController) CompareAllMethods() error {
	return c.mutate(func(s *selection.State) error {
		if s.Kind != selection.KindCorrelation {
			return errors.InvalidInput("method comparison is only available for correlation views")
		}
		s.Methods = selection.CorrelationMethods()
		c.render = RenderStacked
		c.tabs.OnMethodsChanged(s.Methods)
		return nil
	})
}

// SetSegmentBy changes the grouping column; empty removes grouping
func (c *ViewController) SetSegmentBy(column string) error {
	return c.mutate(func(s *selection.State) error {
		s.SegmentBy = column
		c.tabs.OnSegmentByChanged()
		return nil
	})
}

// SetCustomPercentiles sets extra percentiles for smart tables
func (c *ViewController) SetCustomPercentiles(ps []float64) error {
	return c.mutate(func(s *selection.State) error {
		for _, p := range ps {
			if p <= 0 || p >= 100 {
				return errors.InvalidInput("percentiles must lie strictly between 0 and 100")
			}
		}
		s.CustomPercentiles = slices.Clone(ps)
		return nil
	})
}

// AddFilterRule appends a default rule on defaultColumn and returns it
func (c *ViewController) AddFilterRule(defaultColumn string) (filter.Rule, error) {
	var rule filter.Rule
	err := c.mutate(func(s *selection.State) error {
		rule = s.Filters.AddRule(defaultColumn)
		return nil
	})
	return rule, err
}

func (c *ViewController) RemoveLastFilterRule() error {
	return c.mutate(func(s *selection.State) error {
		s.Filters.RemoveLastRule()
		return nil
	})
}

func (c *ViewController) RemoveFilterRule(id core.ID) error {
	return c.mutate(func(s *selection.State) error {
		if !s.Filters.RemoveRule(id) {
			return errors.NotFound("filter rule " + id.String())
		}
		return nil
	})
}

func (c *ViewController) UpdateFilterRule(id core.ID, field filter.Field, value string) error {
	return c.mutate(func(s *selection.State) error {
		return s.Filters.UpdateRule(id, field, value)
	})
}

func (c *ViewController) ClearFilters() error {
	return c.mutate(func(s *selection.State) error {
		s.Filters.Clear()
		return nil
	})
}

func (c *ViewController) SetFiltersEnabled(enabled bool) error {
	return c.mutate(func(s *selection.State) error {
		s.Filters.SetEnabled(enabled)
		return nil
	})
}

func (c *ViewController) SetCombineMode(mode filter.CombineMode) error {
	return c.mutate(func(s *selection.State) error {
		s.Filters.SetMode(mode)
		return nil
	})
}

// SelectSegment is a tab click; unknown segments are ignored and reported false
func (c *ViewController) SelectSegment(segment string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.tabs.SelectSegment(c.snap, segment) {
		return false
	}
	c.publish()
	return true
}

// SelectMethod is a method tab click; unknown methods are ignored and reported false
func (c *ViewController) SelectMethod(m selection.Method) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.tabs.SelectMethod(c.snap, m) {
		return false
	}
	c.publish()
	return true
}

// SetRenderMode switches between tabs and stacked sections without a request
func (c *ViewController) SetRenderMode(mode RenderMode) error {
	if mode != RenderTabs && mode != RenderStacked {
		return errors.InvalidInput("render mode must be tabs or stacked")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrViewClosed
	}
	c.render = mode
	c.publish()
	return nil
}

// Refresh skips the debounce window and requests the current selection now
func (c *ViewController) Refresh() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrViewClosed
	}
	gen := c.invalidate()
	c.mu.Unlock()

	c.debouncer.Immediate(func() { c.fire(gen) })
	return nil
}

// Export renders the published result. It reads a snapshot, so an in-flight
// request never changes what is exported.
func (c *ViewController) Export(format Format, scope report.Scope) (*Artifact, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrViewClosed
	}
	snap, shown := c.snap, c.tabs.Shown(c.snap)
	c.mu.Unlock()

	return c.exporter.Export(snap, report.Target{Segment: shown.Segment, Method: shown.Method, Scope: scope}, format)
}

// Close stops the timer, cancels the request in flight, closes every
// subscription and waits for background work
func (c *ViewController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.debouncer.Cancel()
	c.invalidate()
	c.stop()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Debug("view closed")
}

// mutate applies fn to the selection and restarts the debounce window. A
// failing fn leaves the selection untouched.
func (c *ViewController) mutate(fn func(s *selection.State) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrViewClosed
	}

	next := c.sel.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	c.sel = next

	gen := c.invalidate()
	if len(c.sel.Variables) == 0 {
		// clearing the selection discards the result immediately
		c.debouncer.Cancel()
		c.snap = nil
		c.clearError()
		c.pending = false
	} else {
		c.pending = true
		c.debouncer.Debounce(func() { c.fire(gen) })
	}
	c.publish()
	return nil
}

// invalidate supersedes every scheduled or running request. Callers hold c.mu.
func (c *ViewController) invalidate() uint64 {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
	return c.generation
}

// fire runs when the debounce window closes for generation gen
func (c *ViewController) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.pending = false

	if len(c.sel.Variables) == 0 {
		c.snap = nil
		c.clearError()
		c.publish()
		return
	}
	if err := c.sel.Validate(); err != nil {
		// incomplete selection: nothing is sent and the last result stays visible
		c.logger.Debug("selection not ready", zap.String("reason", errors.Message(err)))
		c.publish()
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.loading = true
	sel := c.sel.Clone()
	c.wg.Add(1)
	go c.request(ctx, gen, sel)
	c.publish()
}

func (c *ViewController) request(ctx context.Context, gen uint64, sel selection.State) {
	defer c.wg.Done()

	start := c.now()
	snap, err := ports.Aggregate(ctx, c.port, sel)
	c.apply(gen, snap, err, c.now().Sub(start))
}

// apply publishes a response if nothing superseded it
func (c *ViewController) apply(gen uint64, snap result.Snapshot, err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		c.logger.Debug("dropping superseded response", zap.Uint64("generation", gen), zap.Uint64("current", c.generation))
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false

	switch {
	case err == nil && snap != nil:
		c.snap = snap
		c.clearError()
		c.tabs.OnResult(snap)
		c.logger.Debug("result published",
			zap.Uint64("generation", gen), zap.Strings("segments", snap.Segments()), zap.Duration("elapsed", elapsed))
	case errors.IsCancelled(err):
		return
	default:
		if err == nil {
			err = errors.AggregationError("statistics service returned no result", nil)
		}
		c.snap = nil
		c.errCode = errors.GetCode(err)
		c.errMsg = errors.Message(err)
		c.logger.Warn("aggregation failed", zap.Uint64("generation", gen), zap.Error(err))
	}
	c.publish()
}

func (c *ViewController) clearError() {
	c.errCode, c.errMsg = "", ""
}

// publish hands the current model to every subscriber. Callers hold c.mu, so
// this is the only sender and drain-then-send cannot block.
func (c *ViewController) publish() {
	vm := newViewModel(c)
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- vm
	}
}

// DebounceFor picks the coalescing window of a view kind; zero values mean
// the package defaults
func DebounceFor(kind selection.Kind, correlation, descriptive time.Duration) time.Duration {
	if kind == selection.KindCorrelation {
		if correlation > 0 {
			return correlation
		}
		return config.DefaultCorrelationDebounce
	}
	if descriptive > 0 {
		return descriptive
	}
	return config.DefaultDescriptiveDebounce
}
