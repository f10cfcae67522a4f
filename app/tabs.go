package app

import (
	"slices"

	"biometric/domain/result"
	"biometric/domain/selection"
)

// ActiveView is the tab currently shown
type ActiveView struct {
	Segment string           `json:"segment"`
	Method  selection.Method `json:"method"`
}

// TabSync keeps the active tab pointing at something the current result contains
type TabSync struct {
	active ActiveView
}

// NewTabSync starts on the General segment and the first requested method
func NewTabSync(methods []selection.Method) TabSync {
	t := TabSync{active: ActiveView{Segment: result.GeneralSegment}}
	if len(methods) > 0 {
		t.active.Method = methods[0]
	}
	return t
}

func (t *TabSync) Active() ActiveView { return t.active }

// OnResult moves to the first segment and method of fresh data, even when the
// previous tab is still present
func (t *TabSync) OnResult(snap result.Snapshot) {
	if snap == nil {
		return
	}
	if segs := snap.Segments(); len(segs) > 0 {
		t.active.Segment = segs[0]
	}
	if methods := snap.Methods(); len(methods) > 0 {
		t.active.Method = methods[0]
	}
}

// OnSegmentByChanged points at General until the next result confirms it
func (t *TabSync) OnSegmentByChanged() {
	t.active.Segment = result.GeneralSegment
}

// OnMethodsChanged keeps the active method if it is still requested
func (t *TabSync) OnMethodsChanged(methods []selection.Method) {
	if len(methods) > 0 && !slices.Contains(methods, t.active.Method) {
		t.active.Method = methods[0]
	}
}

// SelectSegment accepts a tab click only when the segment exists in snap
func (t *TabSync) SelectSegment(snap result.Snapshot, segment string) bool {
	if !result.HasSegment(snap, segment) {
		return false
	}
	t.active.Segment = segment
	return true
}

// SelectMethod accepts a tab click only when the method exists in snap
func (t *TabSync) SelectMethod(snap result.Snapshot, m selection.Method) bool {
	if !result.HasMethod(snap, m) {
		return false
	}
	t.active.Method = m
	return true
}

// Shown is the tab to render for snap. While a segment-by or method change
// waits for its result, the active tab may name something the visible result
// lacks; the result's first segment or method stands in for it.
func (t *TabSync) Shown(snap result.Snapshot) ActiveView {
	shown := t.active
	if snap == nil {
		return shown
	}
	if segs := snap.Segments(); len(segs) > 0 && !slices.Contains(segs, shown.Segment) {
		shown.Segment = segs[0]
	}
	if methods := snap.Methods(); len(methods) > 0 && !slices.Contains(methods, shown.Method) {
		shown.Method = methods[0]
	}
	return shown
}
