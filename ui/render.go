package ui

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"biometric/app"
	"biometric/domain/presentation"
	"biometric/domain/report"
	"biometric/domain/selection"
	"biometric/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// tab is one clickable segment or method header
type tab struct {
	Value  string
	Label  string
	Active bool
}

// matrixFragment is what fragments/matrix.html draws
type matrixFragment struct {
	View        app.ViewModel
	Title       string
	SegmentTabs []tab
	MethodTabs  []tab
	Stacked     bool
	Sections    []report.Section
	Legend      template.HTML
	Message     string
}

var (
	legendOnce sync.Once
	legendHTML template.HTML
)

// mdToHTML renders trusted, package-owned markdown
func mdToHTML(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

func correlationLegend() template.HTML {
	legendOnce.Do(func() { legendHTML = mdToHTML(presentation.LegendMarkdown()) })
	return legendHTML
}

// buildFragment lays a view model out as tabs plus the sections the render
// mode asks for. Tables come from the same Document the exporters draw.
func buildFragment(vm app.ViewModel, now time.Time) matrixFragment {
	frag := matrixFragment{View: vm, Title: vm.Kind.Title(), Stacked: vm.RenderMode == app.RenderStacked}

	switch {
	case vm.Error != "":
		frag.Message = vm.Error
		return frag
	case !vm.HasResult && (vm.Pending || vm.Loading):
		frag.Message = "Calculating..."
		return frag
	case !vm.HasResult:
		frag.Message = emptyMessage(vm)
		return frag
	}

	for _, s := range vm.Segments {
		frag.SegmentTabs = append(frag.SegmentTabs, tab{Value: s, Label: s, Active: s == vm.Shown.Segment})
	}
	if len(vm.Methods) > 1 && !frag.Stacked {
		for _, m := range vm.Methods {
			method := selection.Method(m)
			frag.MethodTabs = append(frag.MethodTabs, tab{Value: m, Label: method.Label(), Active: method == vm.Shown.Method})
		}
	}

	scope := report.ScopeActive
	if frag.Stacked {
		scope = report.ScopeSegment
	}
	doc, err := report.Build(vm.Result, report.Target{Segment: vm.Shown.Segment, Method: vm.Shown.Method, Scope: scope}, now)
	if err != nil {
		frag.Message = errors.Message(err)
		return frag
	}
	frag.Sections = doc.Sections
	if vm.Kind == selection.KindCorrelation {
		frag.Legend = correlationLegend()
	} else {
		frag.Legend = mdToHTML(strings.Join(doc.Legend, "\n\n"))
	}
	return frag
}

func emptyMessage(vm app.ViewModel) string {
	need := vm.Kind.MinimumVariables()
	if need > 1 {
		return fmt.Sprintf("Select at least %d variables.", need)
	}
	return "Select a variable."
}

// cellStyle turns a palette style into inline CSS. Colours only ever come
// from the presentation palette.
func cellStyle(s presentation.Style) template.CSS {
	var b strings.Builder
	if s.Fill != "" {
		fmt.Fprintf(&b, "background-color:%s;", s.Fill)
	}
	if s.FontColor != "" {
		fmt.Fprintf(&b, "color:%s;", s.FontColor)
	}
	if s.Bold {
		b.WriteString("font-weight:bold;")
	}
	if s.Italic {
		b.WriteString("font-style:italic;")
	}
	if s.Align != "" {
		fmt.Fprintf(&b, "text-align:%s;", s.Align)
	}
	return template.CSS(b.String())
}
