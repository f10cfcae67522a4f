package report

import (
	"fmt"
	"time"

	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"
)

var smartTableHeader = []string{
	"Variable", "N", "Missing", "Mean", "Median", "SD", "Min", "Max", "Q1", "Q3", "Skewness", "Kurtosis", "Normality",
}

// SmartTable builds one section per segment in scope, one row per analysed column
func SmartTable(set *result.DescriptiveSet, target Target, now time.Time) (*Document, error) {
	if set == nil {
		return nil, errors.ExportError("no data to export", nil)
	}
	columns := set.AnalyzedColumns()
	if len(columns) == 0 {
		return nil, errors.ExportError("no analyzed variables to export", nil)
	}
	segments, segmentLabel, err := segmentsFor(set, target)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Kind:        selection.KindSmartTable,
		Title:       selection.KindSmartTable.Title(),
		Segment:     segmentLabel,
		Method:      string(selection.Descriptive),
		Variables:   columns,
		GeneratedAt: now,
		Legend: []string{
			"Values rounded to 2 decimals; '-' marks values that could not be computed",
			"Normality p-values below 0.05 reject the normal distribution",
		},
	}

	for _, seg := range segments {
		section := Section{
			Name:    seg,
			Title:   fmt.Sprintf("Descriptive statistics - %s", seg),
			Segment: seg,
			Method:  selection.Descriptive,
		}
		for _, h := range smartTableHeader {
			section.Header = append(section.Header, headerCell(h))
		}
		for _, col := range columns {
			st, ok := set.Column(seg, col)
			if !ok {
				section.Rows = append(section.Rows, missingStatsRow(col))
				continue
			}
			section.Rows = append(section.Rows, statsRow(col, st))
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}

func statsRow(col string, st result.ColumnStats) []Cell {
	return []Cell{
		labelCell(col),
		valueCell(fmt.Sprintf("%d", st.N)),
		valueCell(fmt.Sprintf("%d", st.Missing)),
		valueCell(number(st.CentralTendency.Mean, 2)),
		valueCell(number(st.CentralTendency.Median, 2)),
		valueCell(number(st.Dispersion.StdDev, 2)),
		valueCell(number(st.Dispersion.Min, 2)),
		valueCell(number(st.Dispersion.Max, 2)),
		valueCell(number(st.Percentiles.Q1, 2)),
		valueCell(number(st.Percentiles.Q3, 2)),
		valueCell(number(st.Shape.Skewness, 2)),
		valueCell(number(st.Shape.Kurtosis, 2)),
		valueCell(normalityText(st.Shape)),
	}
}

func missingStatsRow(col string) []Cell {
	cells := []Cell{labelCell(col)}
	for range smartTableHeader[1:] {
		cells = append(cells, valueCell("-"))
	}
	return cells
}

func normalityText(s result.Shape) string {
	text := s.NormalityTest
	if text == "" {
		text = "-"
	}
	if s.NormalityPValue != nil {
		text += fmt.Sprintf(" (p=%.3f)", *s.NormalityPValue)
	}
	return text
}
