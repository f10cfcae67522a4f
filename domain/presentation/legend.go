package presentation

import "fmt"

// Legend lines printed under every exported table. ASCII only so PDF core fonts render them.
func Legend() []string {
	return []string{
		fmt.Sprintf("Significance: * p<%g, ** p<%g, *** p<%g", PSignificant, PVerySignificant, PHighlySignificant),
		fmt.Sprintf("Strength: strong |r|>=%.2f, moderate %.2f<=|r|<%.2f, weak |r|<%.2f; diagonal cells are r=1 and untested",
			StrongThreshold, ModerateThreshold, StrongThreshold, ModerateThreshold),
	}
}

// LegendMarkdown is the same legend for the HTML view
func LegendMarkdown() string {
	return fmt.Sprintf(`**Significance** · `+"`*`"+` p < %g · `+"`**`"+` p < %g · `+"`***`"+` p < %g

**Strength** · strong |r| ≥ %.2f · moderate %.2f ≤ |r| < %.2f · weak |r| < %.2f · diagonal cells are r = 1 and untested
`, PSignificant, PVerySignificant, PHighlySignificant,
		StrongThreshold, ModerateThreshold, StrongThreshold, ModerateThreshold)
}
