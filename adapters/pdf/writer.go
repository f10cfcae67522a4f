// Package pdf writes report documents as paginated PDF tables.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"biometric/domain/presentation"
	"biometric/domain/report"
	"biometric/internal/errors"

	"github.com/go-pdf/fpdf"
)

// ContentType of a PDF document
const ContentType = "application/pdf"

// LandscapeAbove is the data-column count past which pages turn landscape
const LandscapeAbove = 4

const (
	marginSide   = 12.0
	marginTop    = 14.0
	marginBottom = 24.0
	rowHeight    = 7.0
	minLabelW    = 28.0
	maxLabelW    = 55.0
	cellPadding  = 3.0
	footerLine   = 4.0
)

// Orientation is "L" for wide tables, "P" otherwise
func Orientation(doc *report.Document) string {
	if doc.DataColumns() > LandscapeAbove {
		return "L"
	}
	return "P"
}

// Writer implements ports.DocumentWriter for PDF
type Writer struct {
	now func() time.Time
}

func NewWriter() *Writer { return &Writer{now: time.Now} }

func (w *Writer) ContentType() string { return ContentType }
func (w *Writer) Extension() string   { return "pdf" }

// Write renders every section as a table starting on its own page
func (w *Writer) Write(doc *report.Document) ([]byte, error) {
	if doc == nil || len(doc.Sections) == 0 {
		return nil, errors.ExportError("no data to export", nil)
	}

	pdf := fpdf.New(Orientation(doc), "mm", "A4", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("biometric", true)
	pdf.SetCreationDate(w.now())
	pdf.AliasNbPages("")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), doc: doc}
	pdf.SetFooterFunc(r.footer)

	for _, section := range doc.Sections {
		r.section(section)
		if err := pdf.Error(); err != nil {
			return nil, errors.ExportError("render pdf", err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.ExportError("serialise pdf", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	doc *report.Document
}

func (r *renderer) section(s report.Section) {
	r.pdf.AddPage()
	r.titleBlock(s)

	widths := r.columnWidths(s)
	r.row(s.Header, widths)

	_, pageH := r.pdf.GetPageSize()
	for _, row := range s.Rows {
		if r.pdf.GetY()+rowHeight > pageH-marginBottom {
			r.pdf.AddPage()
			r.row(s.Header, widths)
		}
		r.row(row, widths)
	}
}

func (r *renderer) titleBlock(s report.Section) {
	title := r.doc.Title
	if s.Title != "" {
		title = s.Title
	}
	r.apply(presentation.TitleStyle, 15)
	r.pdf.CellFormat(0, 9, r.tr(title), "", 1, "L", false, 0, "")
	r.apply(presentation.LegendStyle, 9)
	r.pdf.MultiCell(0, 5, r.tr(r.doc.MetadataLine()), "", "L", false)
	r.pdf.Ln(4)
}

// columnWidths fits the label column to its content and splits the rest evenly
func (r *renderer) columnWidths(s report.Section) []float64 {
	pageW, _ := r.pdf.GetPageSize()
	usable := pageW - 2*marginSide
	n := len(s.Header)
	if n == 0 {
		return nil
	}

	r.apply(presentation.LabelStyle, r.fontSize(n))
	label := minLabelW
	for _, row := range s.Rows {
		if len(row) > 0 {
			if w := r.pdf.GetStringWidth(r.tr(row[0].Text)) + 2*cellPadding; w > label {
				label = w
			}
		}
	}
	if label > maxLabelW {
		label = maxLabelW
	}
	if n == 1 {
		return []float64{usable}
	}

	widths := make([]float64, n)
	widths[0] = label
	rest := (usable - label) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}

func (r *renderer) fontSize(columns int) float64 {
	switch {
	case columns > 10:
		return 7
	case columns > 6:
		return 8
	}
	return 9
}

func (r *renderer) row(cells []report.Cell, widths []float64) {
	size := r.fontSize(len(widths))
	r.pdf.SetDrawColor(presentation.RGB("#D1D5DB"))
	for i, c := range cells {
		if i >= len(widths) {
			break
		}
		r.apply(c.Style, size)
		text := r.fit(r.tr(c.Text), widths[i])
		r.pdf.CellFormat(widths[i], rowHeight, text, "1", 0, align(c.Style.Align), c.Style.Fill != "", 0, "")
	}
	r.pdf.Ln(-1)
}

// fit truncates text that would overflow its cell
func (r *renderer) fit(text string, width float64) string {
	limit := width - cellPadding
	if r.pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 1 && r.pdf.GetStringWidth(string(runes)+"..") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}

func (r *renderer) footer() {
	r.pdf.SetY(-(marginBottom - 4))
	r.apply(presentation.LegendStyle, 7.5)
	for _, line := range r.doc.Legend {
		r.pdf.CellFormat(0, footerLine, r.tr(line), "", 1, "L", false, 0, "")
	}
	r.pdf.CellFormat(0, footerLine, fmt.Sprintf("Page %d/{nb}", r.pdf.PageNo()), "", 0, "R", false, 0, "")
}

func (r *renderer) apply(s presentation.Style, size float64) {
	style := ""
	if s.Bold {
		style += "B"
	}
	if s.Italic {
		style += "I"
	}
	r.pdf.SetFont("Helvetica", style, size)
	r.pdf.SetTextColor(presentation.RGB(s.FontColor))
	if s.Fill != "" {
		r.pdf.SetFillColor(presentation.RGB(s.Fill))
	}
}

func align(a presentation.Align) string {
	switch a {
	case presentation.AlignLeft:
		return "L"
	case presentation.AlignRight:
		return "R"
	}
	return "C"
}
