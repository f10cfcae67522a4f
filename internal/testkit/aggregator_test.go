package testkit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biometric/adapters/aggregation"
	"biometric/domain/filter"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/config"
	"biometric/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregator(t *testing.T) (*Aggregator, *aggregation.Client) {
	t.Helper()
	agg := NewAggregator(nil)
	agg.AddSession("cohort", GenerateCohort(CohortConfig{Rows: 120, Seed: 3}))

	srv := httptest.NewServer(agg)
	t.Cleanup(srv.Close)

	cfg := config.Default().Aggregation
	cfg.BaseURL = srv.URL + "/api/v1"
	cfg.Timeout = 2 * time.Second
	return agg, aggregation.NewClient(cfg)
}

func TestCorrelationsEndToEnd(t *testing.T) {
	agg, client := newAggregator(t)

	sel := selection.New(selection.KindCorrelation, "cohort")
	sel.Variables = []string{"age", "bmi", "sex", "glucose"}
	sel.Methods = []selection.Method{selection.Pearson, selection.Kendall}
	sel.SegmentBy = "arm"

	set, err := client.Correlations(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"General", "Control", "Treatment"}, set.Segments())
	assert.Equal(t, []string{"age", "bmi", "glucose"}, set.AnalyzedColumns())
	assert.Equal(t, "arm", set.SegmentBy())

	m, ok := set.Table("Treatment", selection.Kendall)
	require.True(t, ok)
	cell, ok := m.Cell("glucose", "age")
	require.True(t, ok)
	require.NotNil(t, cell.Coefficient)
	assert.Greater(t, *cell.Coefficient, 0.0)
	assert.NoError(t, m.CheckSymmetry())
	assert.EqualValues(t, 1, agg.Requests())
}

func TestCorrelationsOneWayMatrixIsMirrored(t *testing.T) {
	agg, client := newAggregator(t)
	agg.SetOneWayMatrices(true)

	sel := selection.New(selection.KindCorrelation, "cohort")
	sel.Variables = []string{"age", "sbp"}

	set, err := client.Correlations(context.Background(), sel)
	require.NoError(t, err)
	m, ok := set.Table(result.GeneralSegment, selection.Pearson)
	require.True(t, ok)

	upper, _ := m.Cell("age", "sbp")
	lower, ok := m.Cell("sbp", "age")
	require.True(t, ok)
	assert.Equal(t, upper.Coefficient, lower.Coefficient)
}

func TestFiltersNarrowTheSample(t *testing.T) {
	_, client := newAggregator(t)

	sel := selection.New(selection.KindCorrelation, "cohort")
	sel.Variables = []string{"age", "sbp"}
	all, err := client.Correlations(context.Background(), sel)
	require.NoError(t, err)

	sel.Filters = filter.FromRules([]filter.Rule{
		{ID: "r1", Column: "age", Operator: filter.OpGreaterEqual, Value: 60},
	}, filter.And, true)
	older, err := client.Correlations(context.Background(), sel)
	require.NoError(t, err)

	n := func(set *result.MatrixSet) int {
		m, _ := set.Table(result.GeneralSegment, selection.Pearson)
		c, _ := m.Cell("age", "sbp")
		return *c.N
	}
	assert.Less(t, n(older), n(all))
	assert.Positive(t, n(older))
}

func TestCorrelationsNeedTwoNumericColumns(t *testing.T) {
	_, client := newAggregator(t)

	sel := selection.New(selection.KindCorrelation, "cohort")
	sel.Variables = []string{"age", "sex"}

	_, err := client.Correlations(context.Background(), sel)
	require.Error(t, err)
	assert.True(t, errors.IsAggregation(err))
	assert.Contains(t, errors.Message(err), "2 numeric columns")
}

func TestUnknownSessionAndColumn(t *testing.T) {
	_, client := newAggregator(t)

	sel := selection.New(selection.KindCorrelation, "missing")
	sel.Variables = []string{"age", "bmi"}
	_, err := client.Correlations(context.Background(), sel)
	require.Error(t, err)
	assert.Contains(t, errors.Message(err), "Session not found")

	sel.SessionID = "cohort"
	sel.Variables = []string{"age", "weight"}
	_, err = client.Correlations(context.Background(), sel)
	require.Error(t, err)
	assert.Contains(t, errors.Message(err), "Column 'weight' not found")
}

func TestSmartTableEndToEnd(t *testing.T) {
	_, client := newAggregator(t)

	sel := selection.New(selection.KindSmartTable, "cohort")
	sel.Variables = []string{"glucose", "hdl"}
	sel.SegmentBy = "sex"
	sel.CustomPercentiles = []float64{10}

	set, err := client.SmartTable(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"General", "F", "M"}, set.Segments())

	cs, ok := set.Column("F", "glucose")
	require.True(t, ok)
	assert.Positive(t, cs.N)
	require.NotNil(t, cs.CentralTendency.Mean)
	assert.Contains(t, cs.CustomPercentiles, "p10")
}

func TestFrequenciesEndToEnd(t *testing.T) {
	_, client := newAggregator(t)

	sel := selection.New(selection.KindFrequency, "cohort")
	sel.Variables = []string{"smoker"}

	set, err := client.Frequencies(context.Background(), sel)
	require.NoError(t, err)
	tables := set.Tables(result.GeneralSegment)
	require.Len(t, tables, 1)
	assert.Equal(t, 120, tables[0].Total)
	assert.Equal(t, "no", tables[0].Rows[0].Category)
}

func TestLatencyHonoursCancellation(t *testing.T) {
	agg, client := newAggregator(t)
	agg.SetLatency(time.Second)

	sel := selection.New(selection.KindCorrelation, "cohort")
	sel.Variables = []string{"age", "bmi"}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := client.Correlations(ctx, sel)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestHealthAndColumns(t *testing.T) {
	agg := NewAggregator(nil)
	agg.AddSession("cohort", GenerateCohort(CohortConfig{Rows: 10, Seed: 1}))

	rec := httptest.NewRecorder()
	agg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	agg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/cohort/columns", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Numeric     []string `json:"numeric"`
		Categorical []string `json:"categorical"`
		Rows        int      `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"arm", "sex", "smoker"}, body.Categorical)
	assert.Equal(t, 10, body.Rows)
}

func TestMalformedRequestBody(t *testing.T) {
	agg := NewAggregator(nil)
	rec := httptest.NewRecorder()
	agg.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stats/correlations", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}
