package selection

import (
	"testing"

	"biometric/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimumVariables(t *testing.T) {
	assert.Equal(t, 2, KindCorrelation.MinimumVariables())
	assert.Equal(t, 1, KindSmartTable.MinimumVariables())
	assert.Equal(t, 1, KindFrequency.MinimumVariables())
}

func TestValidate(t *testing.T) {
	s := New(KindCorrelation, "")
	s.Variables = []string{"age", "bmi"}
	assert.True(t, errors.IsValidation(s.Validate()), "missing session")

	s.SessionID = "abc"
	s.Variables = []string{"age"}
	assert.True(t, errors.IsValidation(s.Validate()), "one variable is not enough for correlation")

	s.Variables = []string{"age", "bmi"}
	assert.NoError(t, s.Validate())

	d := New(KindSmartTable, "abc")
	d.Variables = []string{"age"}
	assert.NoError(t, d.Validate())
}

func TestUniqueVariables(t *testing.T) {
	got := UniqueVariables([]string{"age", " bmi", "age", "", "glucose", "bmi "})
	assert.Equal(t, []string{"age", "bmi", "glucose"}, got)
}

func TestNormalizeMethods(t *testing.T) {
	got, err := NormalizeMethods(KindCorrelation, []Method{Spearman, Pearson, Spearman})
	require.NoError(t, err)
	assert.Equal(t, []Method{Spearman, Pearson}, got)

	_, err = NormalizeMethods(KindCorrelation, []Method{Descriptive})
	assert.Error(t, err)
	_, err = NormalizeMethods(KindCorrelation, nil)
	assert.Error(t, err)
	_, err = NormalizeMethods(KindFrequency, []Method{Pearson})
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	s := New(KindCorrelation, "abc")
	s.Variables = []string{"age", "bmi"}
	s.Filters.AddRule("age")

	c := s.Clone()
	s.Variables[0] = "weight"
	s.Filters.AddRule("bmi")

	assert.Equal(t, []string{"age", "bmi"}, c.Variables)
	assert.Equal(t, 1, c.Filters.Len())
}

func TestSelfSegmented(t *testing.T) {
	s := New(KindCorrelation, "abc")
	s.Variables = []string{"age", "bmi"}
	s.SegmentBy = "age"
	assert.True(t, s.SelfSegmented())
	assert.NoError(t, s.Validate(), "self-segmentation is not a hard failure")

	s.SegmentBy = "gender"
	assert.False(t, s.SelfSegmented())
}

func TestParseMethodAndKind(t *testing.T) {
	m, err := ParseMethod(" Kendall ")
	require.NoError(t, err)
	assert.Equal(t, Kendall, m)
	assert.Equal(t, "Kendall", m.Label())

	_, err = ParseMethod("all")
	assert.Error(t, err)

	k, err := ParseKind("smart_table")
	require.NoError(t, err)
	assert.Equal(t, KindSmartTable, k)
}
