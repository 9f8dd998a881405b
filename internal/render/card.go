package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Card wraps content in a rounded-border box with a title in the top border.
type Card struct {
	Title   string
	Width   int // total outer width
	Content string
}

// InnerWidth returns the usable content width inside the card.
func (c Card) InnerWidth() int {
	return c.Width - 4 // 2 border chars + 2 padding spaces
}

func (c Card) Render() string {
	innerWidth := c.Width - 2

	// ╭─ Title ────╮
	titlePart := ""
	if c.Title != "" {
		titlePart = " " + headerStyle.Render(c.Title) + " "
	}
	dashes := innerWidth - 1 - lipgloss.Width(titlePart)
	if dashes < 0 {
		dashes = 0
	}
	top := borderStyle.Render("╭─") + titlePart + borderStyle.Render(strings.Repeat("─", dashes)+"╮")

	contentWidth := innerWidth - 2
	var body []string
	for _, line := range strings.Split(c.Content, "\n") {
		body = append(body, borderStyle.Render("│")+" "+padRight(line, contentWidth)+" "+borderStyle.Render("│"))
	}

	bottom := borderStyle.Render("╰" + strings.Repeat("─", innerWidth) + "╯")
	return top + "\n" + strings.Join(body, "\n") + "\n" + bottom
}

// Bar renders a horizontal usage bar. Fractions above 1 fill the bar and
// switch to the alert color.
func Bar(fraction float64, width int) string {
	if width < 1 {
		return ""
	}
	clamped := fraction
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	filled := int(clamped*float64(width) + 0.5)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			sb.WriteString(lipgloss.NewStyle().Foreground(ColorBarDim).Render("░"))
			continue
		}
		color := lipgloss.Color(gradientAt(float64(i)/float64(max(width-1, 1)), barGradient))
		if fraction > 1 {
			color = ColorAlert
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(color).Render("█"))
	}
	return sb.String()
}
