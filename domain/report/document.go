// Package report turns a published result snapshot into a renderer-neutral
// Document. The Excel, PDF and HTML renderers draw Documents and never look at
// coefficients themselves, so they cannot disagree about a cell.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"biometric/domain/presentation"
	"biometric/domain/result"
	"biometric/domain/selection"
	"biometric/internal/errors"
)

// Scope selects how much of a snapshot a document covers
type Scope string

const (
	// ScopeActive is the active segment and active method only
	ScopeActive Scope = "active"
	// ScopeSegment is every method of the active segment
	ScopeSegment Scope = "segment"
	// ScopeAll is every segment and method
	ScopeAll Scope = "all"
)

// ParseScope validates an export scope; empty means active
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeActive, nil
	case ScopeActive, ScopeSegment, ScopeAll:
		return sc, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown export scope %q", s))
}

// Target is the part of the view a document is built for
type Target struct {
	Segment string
	Method  selection.Method
	Scope   Scope
}

// Document is the content of one export
type Document struct {
	Kind        selection.Kind
	Title       string
	Segment     string
	Method      string
	Variables   []string
	GeneratedAt time.Time
	Sections    []Section
	Legend      []string
}

// Section is one table; exporters put each on its own sheet or page
type Section struct {
	Name    string
	Title   string
	Segment string
	Method  selection.Method
	Header  []Cell
	Rows    [][]Cell
}

// Cell is one rendered table cell
type Cell struct {
	Text    string             `json:"text"`
	Style   presentation.Style `json:"style"`
	Class   string             `json:"class"`
	Tooltip string             `json:"tooltip,omitempty"`
}

// DataColumns is the widest section's column count, excluding the label column
func (d *Document) DataColumns() int {
	widest := 0
	for _, s := range d.Sections {
		if n := len(s.Header) - 1; n > widest {
			widest = n
		}
	}
	return widest
}

// MetadataLine is the "date | segment | variables" line under the title
func (d *Document) MetadataLine() string {
	return fmt.Sprintf("Date: %s | Segment: %s | Variables: %s",
		d.GeneratedAt.Format("2006-01-02"), d.Segment, strings.Join(d.Variables, ", "))
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename is deterministic in kind, method, segment and date
func (d *Document) Filename(ext string) string {
	parts := []string{string(d.Kind), d.Method, d.Segment, d.GeneratedAt.Format("2006-01-02")}
	for i, p := range parts {
		p = unsafeFilename.ReplaceAllString(strings.TrimSpace(p), "_")
		parts[i] = strings.Trim(p, "_")
		if parts[i] == "" {
			parts[i] = "all"
		}
	}
	return strings.Join(parts, "_") + "." + strings.TrimPrefix(ext, ".")
}

// Build dispatches on the snapshot kind. A nil snapshot is an export error.
func Build(snap result.Snapshot, target Target, now time.Time) (*Document, error) {
	if snap == nil {
		return nil, errors.ExportError("no data to export", nil)
	}
	if target.Scope == "" {
		target.Scope = ScopeActive
	}

	switch s := snap.(type) {
	case *result.MatrixSet:
		return Correlation(s, target, now)
	case *result.DescriptiveSet:
		return SmartTable(s, target, now)
	case *result.FrequencySet:
		return Frequency(s, target, now)
	}
	return nil, errors.ExportError(fmt.Sprintf("cannot export %s results", snap.Kind()), nil)
}

// segmentsFor resolves which segments a scope covers
func segmentsFor(snap result.Snapshot, target Target) ([]string, string, error) {
	if target.Scope == ScopeAll {
		return snap.Segments(), "All segments", nil
	}
	if !result.HasSegment(snap, target.Segment) {
		return nil, "", errors.ExportError(fmt.Sprintf("segment %q is not in the current result", target.Segment), nil)
	}
	return []string{target.Segment}, target.Segment, nil
}

func sectionName(segment, label string, multiSegment bool) string {
	if multiSegment {
		return segment + " - " + label
	}
	return label
}

func headerCell(text string) Cell {
	return Cell{Text: text, Style: presentation.HeaderStyle, Class: "cell header"}
}

func labelCell(text string) Cell {
	return Cell{Text: text, Style: presentation.LabelStyle, Class: "cell label"}
}

func valueCell(text string) Cell {
	return Cell{Text: text, Style: presentation.ValueStyle, Class: "cell value"}
}

func number(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}
