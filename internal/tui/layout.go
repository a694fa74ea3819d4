package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LayoutBreakpoint defines terminal width thresholds for responsive layout.
type LayoutBreakpoint int

const (
	// BreakpointNarrow is for terminals under 60 columns.
	BreakpointNarrow LayoutBreakpoint = 60
	// BreakpointMedium is for terminals between 60 and 100 columns.
	BreakpointMedium LayoutBreakpoint = 100
	// BreakpointWide is for terminals of 100 columns or more.
	BreakpointWide LayoutBreakpoint = 140
)

// GetBreakpoint returns the current layout breakpoint for the given width.
func GetBreakpoint(width int) LayoutBreakpoint {
	switch {
	case width < int(BreakpointNarrow):
		return BreakpointNarrow
	case width < int(BreakpointMedium):
		return BreakpointMedium
	default:
		return BreakpointWide
	}
}

// Panel renders a bordered panel with its title set into the top border.
func (t *Theme) Panel(title, content string, width int) string {
	border := lipgloss.RoundedBorder()
	body := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(t.SecondaryColor).
		Width(max(width-2, 1)).
		Padding(0, 1).
		Render(content)

	edge := lipgloss.NewStyle().Foreground(t.SecondaryColor)
	inner := max(width-2, 1)
	if title == "" || lipgloss.Width(title)+4 >= inner {
		return edge.Render(border.TopLeft+strings.Repeat(border.Top, inner)+border.TopRight) + "\n" + body
	}

	label := " " + title + " "
	fill := strings.Repeat(border.Top, inner-1-lipgloss.Width(label))
	top := edge.Render(border.TopLeft+border.Top) +
		t.Accent.Bold(true).Render(label) +
		edge.Render(fill+border.TopRight)
	return top + "\n" + body
}

// SideBySide renders two blocks in columns, stacking them when they do not
// fit in totalWidth.
func SideBySide(left, right string, totalWidth, gap int) string {
	leftWidth := lipgloss.Width(left)
	if leftWidth+lipgloss.Width(right)+gap > totalWidth {
		return left + "\n\n" + right
	}

	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")
	n := max(len(leftLines), len(rightLines))

	var b strings.Builder
	for i := 0; i < n; i++ {
		l, r := "", ""
		if i < len(leftLines) {
			l = leftLines[i]
		}
		if i < len(rightLines) {
			r = rightLines[i]
		}
		b.WriteString(PadRight(l, leftWidth+gap))
		b.WriteString(r)
		if i < n-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ProgressBar renders value/max as a bar coloured by how full it is.
func (t *Theme) ProgressBar(value, max float64, width int) string {
	if max <= 0 {
		max = 1
	}
	ratio := value / max
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}

	barWidth := width - 2
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(ratio * float64(barWidth))
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

	switch {
	case ratio > 0.6:
		return t.Success.Render(bar)
	case ratio > 0.3:
		return t.Warning.Render(bar)
	default:
		return t.Error.Render(bar)
	}
}

// Truncate shortens a string to fit within maxWidth, adding ellipsis if needed.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// PadRight pads a string to the given width with spaces.
func PadRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// ContentHeight returns the usable content height after subtracting chrome.
func ContentHeight(termHeight, chromeLines int) int {
	return max(termHeight-chromeLines, 5)
}
