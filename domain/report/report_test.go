package report

import (
	"testing"
	"time"

	"biometric/domain/presentation"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

func pair(r, p float64, n int) result.PairCell {
	return result.PairCell{Coefficient: result.Float(r), PValue: result.Float(p), N: result.Int(n)}
}

func matrixSet(t *testing.T, segments []string, methods []selection.Method) *result.MatrixSet {
	t.Helper()
	vars := []string{"age", "bmi", "glucose"}
	tables := map[string]map[selection.Method]*result.Matrix{}
	for _, seg := range segments {
		tables[seg] = map[selection.Method]*result.Matrix{}
		for _, m := range methods {
			tables[seg][m] = result.NewMatrix(m, vars, map[string]map[string]result.PairCell{
				"age":     {"bmi": pair(0.82, 0.0004, 120), "glucose": pair(0.41, 0.008, 118)},
				"bmi":     {"glucose": pair(0.12, 0.3, 117)},
				"glucose": {},
			})
		}
	}
	set, err := result.NewMatrixSet(segments, methods, tables, vars, "")
	require.NoError(t, err)
	return set
}

func TestBuildNilSnapshotIsExportError(t *testing.T) {
	_, err := Build(nil, Target{}, day)
	require.Error(t, err)
	assert.True(t, errors.IsExport(err))
}

func TestCorrelationActiveScope(t *testing.T) {
	set := matrixSet(t, []string{"General"}, []selection.Method{selection.Pearson, selection.Spearman})

	doc, err := Build(set, Target{Segment: "General", Method: selection.Pearson}, day)
	require.NoError(t, err)

	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Equal(t, "Pearson", s.Name)
	assert.Equal(t, selection.Pearson, s.Method)
	assert.Equal(t, 3, doc.DataColumns())
	require.Len(t, s.Rows, 3)

	assert.Equal(t, "1.000", s.Rows[0][1].Text)
	assert.Equal(t, "0.820 (***)", s.Rows[0][2].Text)
	assert.Equal(t, "0.410 (**)", s.Rows[0][3].Text)
	assert.Equal(t, "0.120", s.Rows[1][3].Text)
	// lower triangle mirrors the upper one
	assert.Equal(t, s.Rows[0][2].Text, s.Rows[1][1].Text)

	assert.Equal(t, presentation.StyleOf(presentation.Facts{
		Background: presentation.BackgroundStrong, Emphasis: presentation.EmphasisBold,
	}), s.Rows[0][2].Style)
	assert.Equal(t, "cell bg-strong em-bold", s.Rows[0][2].Class)
	assert.Equal(t, "n=120, p=0.0004", s.Rows[0][2].Tooltip)
	assert.Empty(t, s.Rows[0][1].Tooltip)

	assert.Equal(t, presentation.Legend(), doc.Legend)
	assert.Equal(t, "correlation_pearson_General_2026-03-09.xlsx", doc.Filename("xlsx"))
}

func TestCorrelationAllScope(t *testing.T) {
	set := matrixSet(t, []string{"General", "Control", "Treatment"}, selection.CorrelationMethods())

	doc, err := Build(set, Target{Scope: ScopeAll}, day)
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 9)
	assert.Equal(t, "General - Pearson", doc.Sections[0].Name)
	assert.Equal(t, "correlation_all_All_segments_2026-03-09.pdf", doc.Filename(".pdf"))

	doc, err = Build(set, Target{Segment: "Control", Scope: ScopeSegment}, day)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 3)
	for _, s := range doc.Sections {
		assert.Equal(t, "Control", s.Segment)
	}
}

func TestCorrelationRejectsUnknownTarget(t *testing.T) {
	set := matrixSet(t, []string{"General"}, []selection.Method{selection.Pearson})

	_, err := Build(set, Target{Segment: "Missing", Method: selection.Pearson}, day)
	assert.True(t, errors.IsExport(err))

	_, err = Build(set, Target{Segment: "General", Method: selection.Kendall}, day)
	assert.True(t, errors.IsExport(err))
}

func TestCorrelationNeedsTwoVariables(t *testing.T) {
	tables := map[string]map[selection.Method]*result.Matrix{
		"General": {selection.Pearson: result.NewMatrix(selection.Pearson, []string{"age"}, nil)},
	}
	set, err := result.NewMatrixSet([]string{"General"}, []selection.Method{selection.Pearson}, tables, []string{"age"}, "")
	require.NoError(t, err)

	_, err = Build(set, Target{Segment: "General", Method: selection.Pearson}, day)
	require.Error(t, err)
	assert.True(t, errors.IsExport(err))
}

func TestSmartTable(t *testing.T) {
	stats := map[string]map[string]result.ColumnStats{
		"General": {
			"age": {
				Variable: "age", N: 120, Missing: 2,
				CentralTendency: result.CentralTendency{Mean: result.Float(41.256), Median: result.Float(40)},
				Dispersion:      result.Dispersion{StdDev: result.Float(9.1)},
				Shape:           result.Shape{NormalityTest: "Shapiro-Wilk", NormalityPValue: result.Float(0.2312)},
			},
		},
	}
	set, err := result.NewDescriptiveSet([]string{"General"}, stats, []string{"age", "bmi"}, "")
	require.NoError(t, err)

	doc, err := Build(set, Target{Segment: "General"}, day)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Len(t, s.Header, len(smartTableHeader))
	require.Len(t, s.Rows, 2)

	age := s.Rows[0]
	assert.Equal(t, "age", age[0].Text)
	assert.Equal(t, "120", age[1].Text)
	assert.Equal(t, "41.26", age[3].Text)
	assert.Equal(t, "-", age[6].Text)
	assert.Equal(t, "Shapiro-Wilk (p=0.231)", age[12].Text)

	// a column missing from the response still gets a row
	assert.Equal(t, "bmi", s.Rows[1][0].Text)
	assert.Equal(t, "-", s.Rows[1][1].Text)
}

func TestFrequency(t *testing.T) {
	tables := map[string][]result.FrequencyTable{
		"General": {{Variable: "sex", Total: 10, Rows: []result.FrequencyRow{
			{Category: "F", Count: 6, Percent: 60, CumulativePercent: 60},
			{Category: "M", Count: 4, Percent: 40, CumulativePercent: 100},
		}}},
	}
	set, err := result.NewFrequencySet([]string{"General"}, tables, "")
	require.NoError(t, err)

	doc, err := Build(set, Target{Segment: "General"}, day)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Equal(t, "sex", s.Name)
	require.Len(t, s.Rows, 3)
	assert.Equal(t, "60.0", s.Rows[0][2].Text)
	assert.Equal(t, "Total", s.Rows[2][0].Text)
	assert.Equal(t, "10", s.Rows[2][1].Text)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeActive, s)

	s, err = ParseScope(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)

	_, err = ParseScope("page")
	assert.Error(t, err)
}

func TestMetadataLine(t *testing.T) {
	doc := &Document{Segment: "Control", Variables: []string{"age", "bmi"}, GeneratedAt: day}
	assert.Equal(t, "Date: 2026-03-09 | Segment: Control | Variables: age, bmi", doc.MetadataLine())
}
