// Package excel writes report documents as styled xlsx workbooks.
package excel

import (
	"fmt"
	"strings"

	"biometric/domain/presentation"
	"biometric/domain/report"
	"biometric/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ContentType of an xlsx workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Fixed layout; widths are in characters, heights in points
const (
	LabelColumnWidth = 22.0
	DataColumnWidth  = 16.0
	RowHeight        = 20.0
	TitleRowHeight   = 28.0

	titleRow     = 1
	metadataRow  = 2
	headerRow    = 4
	firstDataRow = 5

	maxSheetName = 31
	borderColor  = "D1D5DB"
)

// Writer implements ports.DocumentWriter for xlsx
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) ContentType() string { return ContentType }
func (w *Writer) Extension() string   { return "xlsx" }

// Write renders one worksheet per document section
func (w *Writer) Write(doc *report.Document) ([]byte, error) {
	if doc == nil || len(doc.Sections) == 0 {
		return nil, errors.ExportError("no data to export", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	b := &book{f: f, styles: map[styleKey]int{}, names: map[string]bool{}}
	for i, section := range doc.Sections {
		name := b.sheetName(section.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, errors.ExportError("create worksheet", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, errors.ExportError("create worksheet", err)
		}
		if err := b.writeSection(name, doc, section); err != nil {
			return nil, errors.ExportError(fmt.Sprintf("write worksheet %q", name), err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.ExportError("serialise workbook", err)
	}
	return buf.Bytes(), nil
}

type styleKey struct {
	style    presentation.Style
	size     float64
	bordered bool
}

type book struct {
	f      *excelize.File
	styles map[styleKey]int
	names  map[string]bool
}

// sheetName strips characters Excel forbids and keeps names unique within 31 chars
func (b *book) sheetName(raw string) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(raw))
	if clean == "" {
		clean = "Sheet"
	}
	clean = truncate(clean, maxSheetName)
	name := clean
	for n := 2; b.names[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(clean, maxSheetName-len(suffix)) + suffix
	}
	b.names[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func (b *book) writeSection(sheet string, doc *report.Document, s report.Section) error {
	width := len(s.Header)
	if width == 0 {
		width = 1
	}
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}

	if err := b.f.SetColWidth(sheet, "A", "A", LabelColumnWidth); err != nil {
		return err
	}
	if width > 1 {
		if err := b.f.SetColWidth(sheet, "B", lastCol, DataColumnWidth); err != nil {
			return err
		}
	}

	title := doc.Title
	if s.Title != "" {
		title = s.Title
	}
	if err := b.banner(sheet, titleRow, lastCol, title, presentation.TitleStyle, 14, TitleRowHeight); err != nil {
		return err
	}
	if err := b.banner(sheet, metadataRow, lastCol, doc.MetadataLine(), presentation.LegendStyle, 10, RowHeight); err != nil {
		return err
	}

	if err := b.row(sheet, headerRow, s.Header); err != nil {
		return err
	}
	for i, cells := range s.Rows {
		if err := b.row(sheet, firstDataRow+i, cells); err != nil {
			return err
		}
	}

	legendRow := firstDataRow + len(s.Rows) + 1
	for i, line := range doc.Legend {
		if err := b.banner(sheet, legendRow+i, lastCol, line, presentation.LegendStyle, 9, RowHeight); err != nil {
			return err
		}
	}

	return b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("B%d", firstDataRow),
		ActivePane:  "bottomRight",
	})
}

// banner writes a single text cell merged across the table width
func (b *book) banner(sheet string, row int, lastCol, text string, style presentation.Style, size, height float64) error {
	start := fmt.Sprintf("A%d", row)
	end := fmt.Sprintf("%s%d", lastCol, row)
	if err := b.f.SetCellValue(sheet, start, text); err != nil {
		return err
	}
	if lastCol != "A" {
		if err := b.f.MergeCell(sheet, start, end); err != nil {
			return err
		}
	}
	id, err := b.style(style, size, false)
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheet, start, end, id); err != nil {
		return err
	}
	return b.f.SetRowHeight(sheet, row, height)
}

func (b *book) row(sheet string, row int, cells []report.Cell) error {
	for i, c := range cells {
		ref, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := b.f.SetCellValue(sheet, ref, c.Text); err != nil {
			return err
		}
		id, err := b.style(c.Style, 11, true)
		if err != nil {
			return err
		}
		if err := b.f.SetCellStyle(sheet, ref, ref, id); err != nil {
			return err
		}
	}
	return b.f.SetRowHeight(sheet, row, RowHeight)
}

// style converts and caches a presentation style; tables get thin borders
func (b *book) style(s presentation.Style, size float64, bordered bool) (int, error) {
	key := styleKey{style: s, size: size, bordered: bordered}
	if id, ok := b.styles[key]; ok {
		return id, nil
	}

	xs := &excelize.Style{
		Font: &excelize.Font{
			Bold:   s.Bold,
			Italic: s.Italic,
			Color:  strings.TrimPrefix(s.FontColor, "#"),
			Size:   size,
			Family: "Calibri",
		},
		Alignment: &excelize.Alignment{
			Horizontal: string(s.Align),
			Vertical:   "center",
		},
	}
	if fill := strings.TrimPrefix(s.Fill, "#"); fill != "" {
		xs.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}}
	}
	if bordered {
		for _, side := range []string{"left", "right", "top", "bottom"} {
			xs.Border = append(xs.Border, excelize.Border{Type: side, Color: borderColor, Style: 1})
		}
	}

	id, err := b.f.NewStyle(xs)
	if err != nil {
		return 0, err
	}
	b.styles[key] = id
	return id, nil
}
