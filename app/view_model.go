package app

import (
	"time"

	"biometric/domain/core"
	"biometric/domain/result"
	"biometric/domain/selection"
)

// RenderMode decides how several methods are laid out
type RenderMode string

const (
	// RenderTabs shows one method at a time
	RenderTabs RenderMode = "tabs"
	// RenderStacked shows every method as its own section
	RenderStacked RenderMode = "stacked"
)

// ViewModel is a read-only copy of a view, safe to hand to another goroutine
type ViewModel struct {
	ViewID     core.ID         `json:"view_id"`
	Kind       selection.Kind  `json:"kind"`
	Selection  selection.State `json:"selection"`
	Result     result.Snapshot `json:"-"`
	HasResult  bool            `json:"has_result"`
	Segments   []string        `json:"segments"`
	Methods    []string        `json:"methods"`
	Analyzed   []string        `json:"analyzed_columns"`
	Active     ActiveView      `json:"active"`
	Shown      ActiveView      `json:"shown"`
	RenderMode RenderMode      `json:"render_mode"`
	Pending    bool            `json:"pending"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Generation uint64          `json:"generation"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func newViewModel(c *ViewController) ViewModel {
	vm := ViewModel{
		ViewID:     c.id,
		Kind:       c.sel.Kind,
		Selection:  c.sel.Clone(),
		Result:     c.snap,
		HasResult:  c.snap != nil,
		Active:     c.tabs.Active(),
		Shown:      c.tabs.Shown(c.snap),
		RenderMode: c.render,
		Pending:    c.pending,
		Loading:    c.loading,
		ErrorCode:  c.errCode,
		Error:      c.errMsg,
		Generation: c.generation,
		UpdatedAt:  c.now(),
	}
	if c.snap != nil {
		vm.Segments = c.snap.Segments()
		vm.Analyzed = c.snap.AnalyzedColumns()
		for _, m := range c.snap.Methods() {
			vm.Methods = append(vm.Methods, string(m))
		}
	}
	return vm
}
