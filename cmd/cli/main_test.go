package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"biometric/app"
	"biometric/domain/filter"
	"biometric/internal/errors"
	"biometric/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw    string
		column string
		op     filter.Operator
		value  float64
	}{
		{"age>=40", "age", filter.OpGreaterEqual, 40},
		{" bmi < 30.5 ", "bmi", filter.OpLess, 30.5},
		{"sbp==120", "sbp", filter.OpEqual, 120},
		{"hdl≠0", "hdl", filter.OpNotEqual, 0},
		{"ldl!=-1", "ldl", filter.OpNotEqual, -1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rule, err := parseFilter(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.column, rule.Column)
			assert.Equal(t, tt.op, rule.Operator)
			assert.Equal(t, tt.value, rule.Value)
		})
	}

	for _, bad := range []string{"age", "age>>40", "age>=forty", ">=40"} {
		_, err := parseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := writeAtomic(dir, &app.Artifact{Filename: "report.pdf", Data: []byte("%PDF-1.3")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not remain")
}

func setupService(t *testing.T) string {
	t.Helper()
	agg := testkit.NewAggregator(nil)
	agg.AddSession("cohort", testkit.GenerateCohort(testkit.CohortConfig{Rows: 100, Seed: 5}))
	srv := httptest.NewServer(agg)
	t.Cleanup(srv.Close)

	t.Setenv("AGGREGATION_BASE_URL", srv.URL+"/api/v1")
	t.Setenv("LOG_LEVEL", "error")
	return t.TempDir()
}

func TestExportCommand(t *testing.T) {
	dir := setupService(t)

	cmd := newExportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--session", "cohort",
		"--variables", "age,bmi,glucose",
		"--segment-by", "arm",
		"--segment", "Treatment",
		"--filter", "age>=30",
		"--format", "pdf",
		"--out", dir,
	})
	require.NoError(t, cmd.Execute())

	path := strings.TrimSpace(out.String())
	assert.Regexp(t, `correlation_pearson_Treatment_\d{4}-\d{2}-\d{2}\.pdf$`, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestExportCommandLeavesNothingOnFailure(t *testing.T) {
	dir := setupService(t)

	cmd := newExportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", "cohort", "--variables", "age", "--out", dir})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	cmd = newExportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", "cohort", "--variables", "age,weight", "--out", dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsAggregation(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
