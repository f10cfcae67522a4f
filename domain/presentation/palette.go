package presentation

import "strconv"

// Style is the renderer-neutral visual encoding of a cell. Colours are #RRGGBB.
type Style struct {
	Fill      string `json:"fill"`
	FontColor string `json:"font_color"`
	Bold      bool   `json:"bold"`
	Italic    bool   `json:"italic"`
	Align     Align  `json:"align"`
}

// Align is horizontal text alignment
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

var backgroundFill = map[Background]string{
	BackgroundDiagonal: "#E5E7EB",
	BackgroundEmpty:    "#F9FAFB",
	BackgroundStrong:   "#BFDBFE",
	BackgroundModerate: "#DBEAFE",
	BackgroundWeak:     "#FFFFFF",
}

type font struct {
	color        string
	bold, italic bool
}

var emphasisFont = map[Emphasis]font{
	EmphasisDiagonal: {color: "#4B5563", bold: true},
	EmphasisMuted:    {color: "#9CA3AF", italic: true},
	EmphasisBold:     {color: "#111827", bold: true},
	EmphasisNormal:   {color: "#1F2937"},
	EmphasisSubtle:   {color: "#6B7280"},
}

// StyleOf turns classified facts into a concrete style
func StyleOf(f Facts) Style {
	fnt := emphasisFont[f.Emphasis]
	return Style{
		Fill:      backgroundFill[f.Background],
		FontColor: fnt.color,
		Bold:      fnt.bold,
		Italic:    fnt.italic,
		Align:     AlignCenter,
	}
}

// Styles for the non-coefficient parts of a table
var (
	TitleStyle  = Style{Fill: "#FFFFFF", FontColor: "#111827", Bold: true, Align: AlignLeft}
	HeaderStyle = Style{Fill: "#1E3A8A", FontColor: "#FFFFFF", Bold: true, Align: AlignCenter}
	LabelStyle  = Style{Fill: "#F3F4F6", FontColor: "#111827", Bold: true, Align: AlignLeft}
	ValueStyle  = Style{Fill: "#FFFFFF", FontColor: "#1F2937", Align: AlignRight}
	LegendStyle = Style{Fill: "#FFFFFF", FontColor: "#6B7280", Italic: true, Align: AlignLeft}
)

// RGB splits a #RRGGBB colour into components; malformed input gives black
func RGB(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int((v >> 16) & 0xFF), int((v >> 8) & 0xFF), int(v & 0xFF)
}
