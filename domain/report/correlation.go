package report

import (
	"fmt"
	"time"

	"biometric/domain/presentation"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"
)

// Correlation builds one section per (segment, method) in scope
func Correlation(set *result.MatrixSet, target Target, now time.Time) (*Document, error) {
	if set == nil {
		return nil, errors.ExportError("no data to export", nil)
	}
	variables := set.AnalyzedColumns()
	if len(variables) < selection.KindCorrelation.MinimumVariables() {
		return nil, errors.ExportError(fmt.Sprintf("a correlation export needs at least 2 analyzed variables, have %d", len(variables)), nil)
	}

	segments, segmentLabel, err := segmentsFor(set, target)
	if err != nil {
		return nil, err
	}

	methods := set.Methods()
	methodLabel := "all"
	if target.Scope == ScopeActive {
		if !result.HasMethod(set, target.Method) {
			return nil, errors.ExportError(fmt.Sprintf("method %q is not in the current result", target.Method), nil)
		}
		methods = []selection.Method{target.Method}
		methodLabel = string(target.Method)
	}

	doc := &Document{
		Kind:        selection.KindCorrelation,
		Title:       selection.KindCorrelation.Title(),
		Segment:     segmentLabel,
		Method:      methodLabel,
		Variables:   variables,
		GeneratedAt: now,
		Legend:      presentation.Legend(),
	}

	for _, seg := range segments {
		for _, m := range methods {
			matrix, ok := set.Table(seg, m)
			if !ok {
				return nil, errors.ExportError(fmt.Sprintf("no %s matrix for segment %q", m, seg), nil)
			}
			doc.Sections = append(doc.Sections, matrixSection(seg, m, matrix, len(segments) > 1))
		}
	}
	return doc, nil
}

func matrixSection(segment string, method selection.Method, matrix *result.Matrix, multiSegment bool) Section {
	vars := matrix.Variables()
	section := Section{
		Name:    sectionName(segment, method.Label(), multiSegment),
		Title:   fmt.Sprintf("%s correlation - %s", method.Label(), segment),
		Segment: segment,
		Method:  method,
		Header:  []Cell{headerCell("Variable")},
	}
	for _, v := range vars {
		section.Header = append(section.Header, headerCell(v))
	}

	for _, row := range vars {
		cells := []Cell{labelCell(row)}
		for _, col := range vars {
			pc, _ := matrix.Cell(row, col)
			cells = append(cells, coefficientCell(pc, row == col))
		}
		section.Rows = append(section.Rows, cells)
	}
	return section
}

func coefficientCell(pc result.PairCell, diagonal bool) Cell {
	facts := presentation.Classify(pc, diagonal)
	cell := Cell{
		Text:  presentation.CellText(pc, diagonal),
		Style: presentation.StyleOf(facts),
		Class: fmt.Sprintf("cell bg-%s em-%s", facts.Background, facts.Emphasis),
	}
	if !diagonal && pc.N != nil {
		cell.Tooltip = fmt.Sprintf("n=%d", *pc.N)
		if pc.PValue != nil {
			cell.Tooltip += fmt.Sprintf(", p=%.4f", *pc.PValue)
		}
	}
	return cell
}
