package presentation

import (
	"strings"
	"testing"

	"biometric/domain/result"

	"github.com/stretchr/testify/assert"
)

func pair(r, p float64) result.PairCell {
	return result.PairCell{Coefficient: result.Float(r), PValue: result.Float(p), N: result.Int(30)}
}

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		name     string
		cell     result.PairCell
		diagonal bool
		want     Facts
	}{
		{"diagonal", pair(1, 0), true, Facts{BackgroundDiagonal, EmphasisDiagonal, ""}},
		{"empty", result.PairCell{}, false, Facts{BackgroundEmpty, EmphasisMuted, ""}},
		{"strong boundary", pair(0.7, 0.2), false, Facts{BackgroundStrong, EmphasisBold, ""}},
		{"strong negative", pair(-0.91, 0.0001), false, Facts{BackgroundStrong, EmphasisBold, "***"}},
		{"moderate boundary", pair(0.3, 0.04), false, Facts{BackgroundModerate, EmphasisNormal, "*"}},
		{"moderate upper", pair(-0.699, 0.009), false, Facts{BackgroundModerate, EmphasisNormal, "**"}},
		{"weak", pair(0.299, 0.5), false, Facts{BackgroundWeak, EmphasisSubtle, ""}},
		{"weak but significant", pair(0.05, 0.0009), false, Facts{BackgroundWeak, EmphasisSubtle, "***"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.cell, tt.diagonal))
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := pair(0.55, 0.03)
	assert.Equal(t, Classify(c, false), Classify(c, false))
	assert.Equal(t, 0.55, *c.Coefficient)
}

func TestSignificanceMark(t *testing.T) {
	tests := map[float64]string{
		0.0009: "***",
		0.001:  "**",
		0.009:  "**",
		0.01:   "*",
		0.04:   "*",
		0.05:   "",
		0.2:    "",
	}
	for p, want := range tests {
		assert.Equal(t, want, SignificanceMark(&p), "p=%v", p)
	}
	assert.Equal(t, "", SignificanceMark(nil))
	assert.False(t, IsSignificant(nil))
}

func TestEmptyCellKeepsSignificance(t *testing.T) {
	facts := Classify(result.PairCell{PValue: result.Float(0.002)}, false)
	assert.Equal(t, BackgroundEmpty, facts.Background)
	assert.Equal(t, "**", facts.Significance)
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "1.000", CellText(pair(0.2, 0.9), true))
	assert.Equal(t, "-", CellText(result.PairCell{}, false))
	assert.Equal(t, "0.854 (***)", CellText(pair(0.8541, 0.00001), false))
	assert.Equal(t, "-0.120", CellText(pair(-0.12, 0.3), false))
}

func TestStyleOfEveryCategory(t *testing.T) {
	for _, bg := range []Background{BackgroundDiagonal, BackgroundEmpty, BackgroundStrong, BackgroundModerate, BackgroundWeak} {
		for _, em := range []Emphasis{EmphasisDiagonal, EmphasisMuted, EmphasisBold, EmphasisNormal, EmphasisSubtle} {
			s := StyleOf(Facts{Background: bg, Emphasis: em})
			assert.True(t, strings.HasPrefix(s.Fill, "#"), "fill for %s", bg)
			assert.True(t, strings.HasPrefix(s.FontColor, "#"), "font for %s", em)
		}
	}
	assert.True(t, StyleOf(Facts{Background: BackgroundStrong, Emphasis: EmphasisBold}).Bold)
	assert.True(t, StyleOf(Facts{Background: BackgroundEmpty, Emphasis: EmphasisMuted}).Italic)
}

func TestRGB(t *testing.T) {
	r, g, b := RGB("#1E3A8A")
	assert.Equal(t, []int{0x1E, 0x3A, 0x8A}, []int{r, g, b})
	r, g, b = RGB("blue")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
	r, g, b = RGB("#GG0000")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
	r, g, b = RGB("#+FFFFF")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
	r, g, b = RGB("#e5e7eb")
	assert.Equal(t, []int{0xE5, 0xE7, 0xEB}, []int{r, g, b})
}

func TestLegendIsASCII(t *testing.T) {
	for _, line := range Legend() {
		for _, c := range line {
			assert.Less(t, c, rune(128), "non-ASCII rune in %q", line)
		}
	}
	assert.Contains(t, Legend()[0], "*** p<0.001")
	assert.Contains(t, LegendMarkdown(), "p < 0.05")
}
