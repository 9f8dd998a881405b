// Package render draws the usage report for a terminal.
package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Base palette
var (
	ColorLavender = lipgloss.Color("#9f99d1")
	ColorSkyBlue  = lipgloss.Color("#86bada")
	ColorMauve    = lipgloss.Color("#dbaad7")
	ColorPeach    = lipgloss.Color("#f6bcb0")
	ColorGold     = lipgloss.Color("#ffe3b3")

	ColorBorder     = lipgloss.Color("#3a3b52")
	ColorMutedText  = lipgloss.Color("#6b6d8a")
	ColorBodyText   = lipgloss.Color("#c8cad8")
	ColorBrightText = lipgloss.Color("#ecedf5")
	ColorBarDim     = lipgloss.Color("#2a2b42")
	ColorAlert      = lipgloss.Color("#f07070")
)

// Gradient stops for usage bars, calm to hot.
var barGradient = []string{
	"#86bada",
	"#9f99d1",
	"#dbaad7",
	"#f6bcb0",
	"#ffe3b3",
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(ColorBrightText).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMutedText)
	bodyStyle   = lipgloss.NewStyle().Foreground(ColorBodyText)
	accentStyle = lipgloss.NewStyle().Foreground(ColorMauve)
	alertStyle  = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(ColorBorder)
)

// lerpColor interpolates between two hex colors.
func lerpColor(from, to string, t float64) string {
	r1, g1, b1 := hexToRGB(from)
	r2, g2, b2 := hexToRGB(to)

	r := uint8(float64(r1) + t*(float64(r2)-float64(r1)))
	g := uint8(float64(g1) + t*(float64(g2)-float64(g1)))
	b := uint8(float64(b1) + t*(float64(b2)-float64(b1)))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) (uint8, uint8, uint8) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var r, g, b uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	return r, g, b
}

// gradientAt interpolates through stops; t is clamped to [0, 1].
func gradientAt(t float64, stops []string) string {
	if len(stops) < 2 {
		return stops[0]
	}
	if t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}

	segments := len(stops) - 1
	segment := int(t * float64(segments))
	if segment >= segments {
		segment = segments - 1
	}
	localT := t*float64(segments) - float64(segment)

	return lerpColor(stops[segment], stops[segment+1], localT)
}
