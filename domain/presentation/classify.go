// Package presentation maps correlation cells to the visual facts shared by the
// HTML view, the spreadsheet export and the PDF export. Thresholds live here only.
package presentation

import (
	"fmt"
	"math"

	"biometric/domain/result"
)

// Background groups cells by the strength of their coefficient
type Background string

const (
	BackgroundDiagonal Background = "diagonal"
	BackgroundEmpty    Background = "empty"
	BackgroundStrong   Background = "strong"
	BackgroundModerate Background = "moderate"
	BackgroundWeak     Background = "weak"
)

// Emphasis is the text treatment of a cell
type Emphasis string

const (
	EmphasisDiagonal Emphasis = "diagonal-accent"
	EmphasisMuted    Emphasis = "muted"
	EmphasisBold     Emphasis = "bold"
	EmphasisNormal   Emphasis = "normal"
	EmphasisSubtle   Emphasis = "subtle"
)

// Coefficient magnitude thresholds, inclusive on the lower bound
const (
	StrongThreshold   = 0.7
	ModerateThreshold = 0.3
)

// Significance thresholds, exclusive
const (
	PHighlySignificant = 0.001
	PVerySignificant   = 0.01
	PSignificant       = 0.05
)

// Facts is everything a renderer needs to draw one cell
type Facts struct {
	Background   Background
	Emphasis     Emphasis
	Significance string
}

// Classify is pure: identical inputs always give identical facts
func Classify(cell result.PairCell, isDiagonal bool) Facts {
	if isDiagonal {
		return Facts{Background: BackgroundDiagonal, Emphasis: EmphasisDiagonal}
	}

	facts := Facts{Significance: SignificanceMark(cell.PValue)}
	if cell.Coefficient == nil {
		facts.Background = BackgroundEmpty
		facts.Emphasis = EmphasisMuted
		return facts
	}

	switch r := math.Abs(*cell.Coefficient); {
	case r >= StrongThreshold:
		facts.Background, facts.Emphasis = BackgroundStrong, EmphasisBold
	case r >= ModerateThreshold:
		facts.Background, facts.Emphasis = BackgroundModerate, EmphasisNormal
	default:
		facts.Background, facts.Emphasis = BackgroundWeak, EmphasisSubtle
	}
	return facts
}

// SignificanceMark derives the star marker from a p-value; nil gives none
func SignificanceMark(p *float64) string {
	if p == nil {
		return ""
	}
	switch {
	case *p < PHighlySignificant:
		return "***"
	case *p < PVerySignificant:
		return "**"
	case *p < PSignificant:
		return "*"
	}
	return ""
}

// IsSignificant reports p < 0.05
func IsSignificant(p *float64) bool {
	return SignificanceMark(p) != ""
}

// CellText formats a cell as "coefficient (marks)". Diagonal cells read 1.000
// and uncomputable cells read "-".
func CellText(cell result.PairCell, isDiagonal bool) string {
	if isDiagonal {
		return "1.000"
	}
	if cell.Coefficient == nil {
		return "-"
	}
	text := fmt.Sprintf("%.3f", *cell.Coefficient)
	if mark := SignificanceMark(cell.PValue); mark != "" {
		text += " (" + mark + ")"
	}
	return text
}
