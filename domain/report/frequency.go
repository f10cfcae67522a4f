package report

import (
	"fmt"
	"time"

	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"
)

// Frequency builds one section per (segment, variable) in scope
func Frequency(set *result.FrequencySet, target Target, now time.Time) (*Document, error) {
	if set == nil {
		return nil, errors.ExportError("no data to export", nil)
	}
	variables := set.AnalyzedColumns()
	if len(variables) == 0 {
		return nil, errors.ExportError("no analyzed variables to export", nil)
	}
	segments, segmentLabel, err := segmentsFor(set, target)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Kind:        selection.KindFrequency,
		Title:       selection.KindFrequency.Title(),
		Segment:     segmentLabel,
		Method:      string(selection.Frequency),
		Variables:   variables,
		GeneratedAt: now,
		Legend:      []string{"Percentages are relative to the segment total"},
	}

	multi := len(segments) > 1
	for _, seg := range segments {
		for _, table := range set.Tables(seg) {
			section := Section{
				Name:    sectionName(seg, table.Variable, multi),
				Title:   fmt.Sprintf("%s - %s", table.Variable, seg),
				Segment: seg,
				Method:  selection.Frequency,
				Header: []Cell{
					headerCell("Category"), headerCell("Frequency"), headerCell("%"), headerCell("Cumulative %"),
				},
			}
			for _, r := range table.Rows {
				section.Rows = append(section.Rows, []Cell{
					labelCell(r.Category),
					valueCell(fmt.Sprintf("%d", r.Count)),
					valueCell(fmt.Sprintf("%.1f", r.Percent)),
					valueCell(fmt.Sprintf("%.1f", r.CumulativePercent)),
				})
			}
			section.Rows = append(section.Rows, []Cell{
				labelCell("Total"), valueCell(fmt.Sprintf("%d", table.Total)), valueCell("100.0"), valueCell(""),
			})
			doc.Sections = append(doc.Sections, section)
		}
	}
	return doc, nil
}
