// Package result holds the immutable snapshots published after a successful
// aggregation response. A snapshot is never mutated; the next response replaces it.
package result

import (
	"slices"

	"biometric/domain/selection"
)

// GeneralSegment labels the whole dataset when no grouping is requested
const GeneralSegment = "General"

// Snapshot is the part every result kind shares with the tab synchroniser
type Snapshot interface {
	Kind() selection.Kind
	Segments() []string
	Methods() []selection.Method
	AnalyzedColumns() []string
}

// HasSegment reports whether s was returned in the snapshot
func HasSegment(snap Snapshot, s string) bool {
	return snap != nil && slices.Contains(snap.Segments(), s)
}

// HasMethod reports whether m was returned in the snapshot
func HasMethod(snap Snapshot, m selection.Method) bool {
	return snap != nil && slices.Contains(snap.Methods(), m)
}

// segmentsCommon is embedded by every snapshot kind
type segmentsCommon struct {
	segments  []string
	analyzed  []string
	segmentBy string
}

func (c segmentsCommon) Segments() []string        { return slices.Clone(c.segments) }
func (c segmentsCommon) AnalyzedColumns() []string { return slices.Clone(c.analyzed) }

// SegmentBy is the grouping column the response was computed for, if any
func (c segmentsCommon) SegmentBy() string { return c.segmentBy }
