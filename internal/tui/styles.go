// Package tui provides the terminal user interface: dashboard, production
// orders and the warehouse, driven by function keys.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/tui/components"
)

// palette is the set of colors a theme is derived from.
type palette struct {
	primary, secondary, accent lipgloss.Color
	background, muted          lipgloss.Color
	ok, warn, crit             lipgloss.Color
}

var palettes = map[config.ColorScheme]palette{
	config.ColorSchemeGreen: {
		primary: "#00FF00", secondary: "#00AA00", accent: "#66FF66",
		background: "#000000", muted: "#006600",
		ok: "#00FF00", warn: "#FFAA00", crit: "#FF4444",
	},
	config.ColorSchemeAmber: {
		primary: "#FFAA00", secondary: "#AA7700", accent: "#FFCC66",
		background: "#000000", muted: "#664400",
		ok: "#FFAA00", warn: "#FFFF00", crit: "#FF4444",
	},
	config.ColorSchemeWhite: {
		primary: "#FFFFFF", secondary: "#AAAAAA", accent: "#FFFFFF",
		background: "#000000", muted: "#666666",
		ok: "#00FF00", warn: "#FFAA00", crit: "#FF4444",
	},
}

// Theme holds the styles the application renders with.
type Theme struct {
	PrimaryColor    lipgloss.Color
	SecondaryColor  lipgloss.Color
	AccentColor     lipgloss.Color
	BackgroundColor lipgloss.Color
	MutedColor      lipgloss.Color
	ErrorColor      lipgloss.Color

	Base    lipgloss.Style
	Primary lipgloss.Style
	Accent  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Box      lipgloss.Style

	// Alert bar, by severity.
	Alert     lipgloss.Style
	AlertWarn lipgloss.Style
	AlertCrit lipgloss.Style

	StatusDivider lipgloss.Style
}

// NewTheme builds the theme for a color scheme. Unknown schemes fall back
// to green.
func NewTheme(scheme config.ColorScheme) *Theme {
	p, ok := palettes[scheme]
	if !ok {
		p = palettes[config.ColorSchemeGreen]
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Theme{
		PrimaryColor:    p.primary,
		SecondaryColor:  p.secondary,
		AccentColor:     p.accent,
		BackgroundColor: p.background,
		MutedColor:      p.muted,
		ErrorColor:      p.crit,

		Base:    fg(p.primary),
		Primary: fg(p.primary),
		Accent:  fg(p.accent),
		Muted:   fg(p.muted),
		Success: fg(p.ok),
		Warning: fg(p.warn),
		Error:   fg(p.crit),

		Header:   fg(p.primary).Bold(true).Padding(0, 1),
		Footer:   fg(p.secondary).Padding(0, 1),
		Title:    fg(p.accent).Bold(true).Padding(0, 1),
		Subtitle: fg(p.primary).Padding(0, 1),
		Label:    fg(p.secondary),
		Value:    fg(p.primary),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.secondary).
			Padding(0, 1),

		Alert:     fg(p.primary).Bold(true),
		AlertWarn: fg(p.warn).Bold(true),
		AlertCrit: fg(p.crit).Bold(true).Blink(true),

		StatusDivider: fg(p.muted).SetString(" │ "),
	}
}

// DrawHorizontalLine draws a single rule.
func (t *Theme) DrawHorizontalLine(width int) string {
	return lipgloss.NewStyle().Foreground(t.SecondaryColor).Render(strings.Repeat("─", max(width, 0)))
}

// DrawDoubleLine draws a double rule.
func (t *Theme) DrawDoubleLine(width int) string {
	return t.Primary.Render(strings.Repeat("═", max(width, 0)))
}

// ComponentStyles maps the theme onto the shared component palette.
func (t *Theme) ComponentStyles() components.Styles {
	return components.Styles{
		Header:   lipgloss.NewStyle().Foreground(t.AccentColor).Bold(true),
		Row:      lipgloss.NewStyle().Foreground(t.PrimaryColor),
		RowAlt:   lipgloss.NewStyle().Foreground(t.SecondaryColor),
		Selected: lipgloss.NewStyle().Foreground(t.BackgroundColor).Background(t.PrimaryColor),
		Border:   lipgloss.NewStyle().Foreground(t.SecondaryColor),
		Title:    lipgloss.NewStyle().Foreground(t.AccentColor).Bold(true),
		Label:    lipgloss.NewStyle().Foreground(t.SecondaryColor),
		Value:    lipgloss.NewStyle().Foreground(t.PrimaryColor),
		Focus:    lipgloss.NewStyle().Foreground(t.AccentColor),
		Muted:    lipgloss.NewStyle().Foreground(t.MutedColor),
		Error:    lipgloss.NewStyle().Foreground(t.ErrorColor),
		Help:     lipgloss.NewStyle().Foreground(t.SecondaryColor),
	}
}
