package testkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"biometric/domain/core"
	"biometric/domain/filter"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Aggregator serves the statistics endpoints over in-memory datasets
type Aggregator struct {
	router *chi.Mux
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Dataset
	latency  time.Duration
	oneWay   bool

	requests atomic.Int64
}

// NewAggregator creates an aggregator with no sessions
func NewAggregator(logger *zap.Logger) *Aggregator {
	a := &Aggregator{
		router:   chi.NewRouter(),
		logger:   logging.OrNop(logger).Named("testkit"),
		sessions: map[string]*Dataset{},
	}
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	a.router.Route("/api/v1/stats", func(r chi.Router) {
		r.Use(a.count)
		r.Use(a.delay)
		r.Post("/correlations", a.handleCorrelations)
		r.Post("/smart-table", a.handleSmartTable)
		r.Post("/frequency", a.handleFrequency)
	})
	a.router.Get("/api/v1/sessions/{id}/columns", a.handleColumns)
	return a
}

func (a *Aggregator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// AddSession registers a dataset under a session id
func (a *Aggregator) AddSession(id string, ds *Dataset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[id] = ds
}

// SetLatency delays every statistics response, honouring client cancellation
func (a *Aggregator) SetLatency(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = d
}

// SetOneWayMatrices stores each pair only once, as some service versions do
func (a *Aggregator) SetOneWayMatrices(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.oneWay = on
}

// Run serves on addr until ctx is cancelled
func (a *Aggregator) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("fake statistics service listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Requests is the number of statistics requests received
func (a *Aggregator) Requests() int64 { return a.requests.Load() }

func (a *Aggregator) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (a *Aggregator) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.RLock()
		d := a.latency
		a.mu.RUnlock()
		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type wireRule struct {
	Column   string          `json:"column"`
	Operator filter.Operator `json:"operator"`
	Value    float64         `json:"value"`
}

type statsRequest struct {
	SessionID         string             `json:"session_id"`
	Columns           []string           `json:"columns"`
	Variables         []string           `json:"variables"`
	Methods           []selection.Method `json:"methods"`
	GroupBy           *string            `json:"group_by"`
	SegmentBy         *string            `json:"segment_by"`
	CustomPercentiles []float64          `json:"custom_percentiles"`
	Filters           []wireRule         `json:"filters"`
	FilterLogic       string             `json:"filter_logic"`
}

func (q statsRequest) columns() []string {
	if len(q.Columns) > 0 {
		return q.Columns
	}
	return q.Variables
}

func (q statsRequest) grouping() string {
	if q.GroupBy != nil {
		return *q.GroupBy
	}
	if q.SegmentBy != nil {
		return *q.SegmentBy
	}
	return ""
}

// httpError is written as {"detail": message}
type httpError struct {
	status int
	detail string
}

func (e *httpError) Error() string { return e.detail }

func badRequest(format string, args ...any) *httpError {
	return &httpError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

// prepare decodes the request, applies filters and splits the rows by segment
func (a *Aggregator) prepare(r *http.Request) (statsRequest, []string, map[string]*Dataset, *httpError) {
	var q statsRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		return q, nil, nil, badRequest("invalid request body: %v", err)
	}

	a.mu.RLock()
	ds, ok := a.sessions[q.SessionID]
	a.mu.RUnlock()
	if !ok {
		return q, nil, nil, &httpError{status: http.StatusNotFound, detail: "Session not found"}
	}

	for _, c := range q.columns() {
		if !ds.has(c) {
			return q, nil, nil, badRequest("Column '%s' not found", c)
		}
	}
	group := q.grouping()
	if group != "" && !ds.has(group) {
		return q, nil, nil, badRequest("Column '%s' not found", group)
	}

	mode := filter.And
	if q.FilterLogic != "" {
		m, err := filter.ParseCombineMode(q.FilterLogic)
		if err != nil {
			return q, nil, nil, badRequest("%v", err)
		}
		mode = m
	}
	rules := make([]filter.Rule, 0, len(q.Filters))
	for i, f := range q.Filters {
		if !ds.has(f.Column) {
			return q, nil, nil, badRequest("Column '%s' not found", f.Column)
		}
		rules = append(rules, filter.Rule{ID: core.ID(fmt.Sprintf("f%d", i)), Column: f.Column, Operator: f.Operator, Value: f.Value})
	}
	set := filter.FromRules(rules, mode, true)

	var kept []int
	for row := 0; row < ds.Rows(); row++ {
		if set.Matches(func(col string) (float64, bool) { return ds.value(col, row) }) {
			kept = append(kept, row)
		}
	}
	filtered := ds.subset(kept)

	segments := []string{result.GeneralSegment}
	parts := map[string]*Dataset{result.GeneralSegment: filtered}
	if group != "" {
		byLevel := map[string][]int{}
		for row := 0; row < filtered.Rows(); row++ {
			if l := filtered.label(group, row); l != "" {
				byLevel[l] = append(byLevel[l], row)
			}
		}
		for _, level := range filtered.levels(group) {
			segments = append(segments, level)
			parts[level] = filtered.subset(byLevel[level])
		}
	}
	return q, segments, parts, nil
}

type wireCell struct {
	R             *float64 `json:"r"`
	PValue        *float64 `json:"p_value"`
	N             *int     `json:"n"`
	IsSignificant bool     `json:"is_significant"`
}

type wireMatrix struct {
	Method    selection.Method               `json:"method"`
	Variables []string                       `json:"variables"`
	Matrix    map[string]map[string]wireCell `json:"matrix"`
}

func (a *Aggregator) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	q, segments, parts, herr := a.prepare(r)
	if herr != nil {
		writeError(w, herr)
		return
	}

	methods := q.Methods
	if len(methods) == 0 {
		methods = []selection.Method{selection.Pearson}
	}
	for _, m := range methods {
		if !m.IsCorrelation() {
			writeError(w, badRequest("Unknown method '%s'", m))
			return
		}
	}

	// categorical columns cannot be correlated and are dropped
	var analyzed []string
	for _, c := range q.columns() {
		if _, ok := parts[result.GeneralSegment].Numeric[c]; ok {
			analyzed = append(analyzed, c)
		}
	}
	if len(analyzed) < 2 {
		writeError(w, badRequest("At least 2 numeric columns are required"))
		return
	}

	a.mu.RLock()
	oneWay := a.oneWay
	a.mu.RUnlock()

	tables := map[string]map[selection.Method]wireMatrix{}
	for _, seg := range segments {
		ds := parts[seg]
		tables[seg] = map[selection.Method]wireMatrix{}
		for _, m := range methods {
			matrix := map[string]map[string]wireCell{}
			for i, a1 := range analyzed {
				matrix[a1] = map[string]wireCell{}
				for j, a2 := range analyzed {
					if oneWay && j < i {
						continue
					}
					var cell result.PairCell
					if i == j {
						cell = result.PairCell{Coefficient: result.Float(1), PValue: result.Float(0), N: result.Int(countPresent(ds.Numeric[a1]))}
					} else {
						cell = correlate(m, ds.Numeric[a1], ds.Numeric[a2])
					}
					matrix[a1][a2] = wireCell{
						R:             cell.Coefficient,
						PValue:        cell.PValue,
						N:             cell.N,
						IsSignificant: i != j && cell.PValue != nil && *cell.PValue < 0.05,
					}
				}
			}
			tables[seg][m] = wireMatrix{Method: m, Variables: analyzed, Matrix: matrix}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"session_id":       q.SessionID,
		"segments":         segments,
		"tables":           tables,
		"analyzed_columns": analyzed,
		"segment_by":       q.GroupBy,
	})
}

func (a *Aggregator) handleSmartTable(w http.ResponseWriter, r *http.Request) {
	q, segments, parts, herr := a.prepare(r)
	if herr != nil {
		writeError(w, herr)
		return
	}

	var analyzed []string
	for _, c := range q.columns() {
		if _, ok := parts[result.GeneralSegment].Numeric[c]; ok {
			analyzed = append(analyzed, c)
		}
	}
	if len(analyzed) == 0 {
		writeError(w, badRequest("No numeric columns to describe"))
		return
	}

	statistics := map[string]map[string]result.ColumnStats{}
	for _, seg := range segments {
		statistics[seg] = map[string]result.ColumnStats{}
		for _, c := range analyzed {
			cs, err := describe(c, parts[seg].Numeric[c], q.CustomPercentiles)
			if err != nil {
				writeError(w, badRequest(fmt.Sprintf("Cannot describe column '%s': %v", c, err)))
				return
			}
			statistics[seg][c] = cs
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"session_id":       q.SessionID,
		"segments":         segments,
		"group_by":         q.GroupBy,
		"analyzed_columns": analyzed,
		"statistics":       statistics,
	})
}

func (a *Aggregator) handleFrequency(w http.ResponseWriter, r *http.Request) {
	q, segments, parts, herr := a.prepare(r)
	if herr != nil {
		writeError(w, herr)
		return
	}
	if len(q.columns()) == 0 {
		writeError(w, badRequest("No variables requested"))
		return
	}

	tables := map[string][]result.FrequencyTable{}
	for _, seg := range segments {
		ds := parts[seg]
		for _, c := range q.columns() {
			labels := make([]string, ds.Rows())
			for row := range labels {
				labels[row] = ds.label(c, row)
			}
			tables[seg] = append(tables[seg], frequencies(c, labels))
		}
	}

	group := q.grouping()
	var segmentBy *string
	if group != "" {
		segmentBy = &group
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"segments":   segments,
		"segment_by": segmentBy,
		"tables":     tables,
	})
}

func (a *Aggregator) handleColumns(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	ds, ok := a.sessions[chi.URLParam(r, "id")]
	a.mu.RUnlock()
	if !ok {
		writeError(w, &httpError{status: http.StatusNotFound, detail: "Session not found"})
		return
	}
	numeric := make([]string, 0, len(ds.Numeric))
	for c := range ds.Numeric {
		numeric = append(numeric, c)
	}
	categorical := make([]string, 0, len(ds.Categorical))
	for c := range ds.Categorical {
		categorical = append(categorical, c)
	}
	slices.Sort(numeric)
	slices.Sort(categorical)
	writeJSON(w, http.StatusOK, map[string]any{"numeric": numeric, "categorical": categorical, "rows": ds.Rows()})
}

func countPresent(v []float64) int {
	n := 0
	for _, x := range v {
		if !math.IsNaN(x) {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, e *httpError) {
	writeJSON(w, e.status, map[string]string{"detail": e.detail})
}
