// Package tui: Lipgloss style constants for the "eportal Dark" theme.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all theme-aware Lipgloss styles.
type Styles struct {
	// Colors
	Background lipgloss.Color
	Surface    lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Danger     lipgloss.Color
	Warning    lipgloss.Color
	Success    lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color

	// Component styles
	PanelTitle  lipgloss.Style
	LogViewport lipgloss.Style
	Modal       lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusErr   lipgloss.Style
}

// newStyles returns the "eportal Dark" theme styles.
func newStyles() Styles {
	bg := lipgloss.Color("#0D0F18")
	surface := lipgloss.Color("#171A2B")
	primary := lipgloss.Color("#7B8CDE")
	accent := lipgloss.Color("#56E0C8")
	danger := lipgloss.Color("#F56565")
	warning := lipgloss.Color("#ECC94B")
	success := lipgloss.Color("#68D391")
	muted := lipgloss.Color("#4A5568")
	text := lipgloss.Color("#E2E8F0")

	return Styles{
		Background: bg, Surface: surface, Primary: primary,
		Accent: accent, Danger: danger, Warning: warning,
		Success: success, Muted: muted, Text: text,

		PanelTitle: lipgloss.NewStyle().
			Foreground(primary).Bold(true).Padding(0, 1),

		LogViewport: lipgloss.NewStyle().
			Foreground(text).
			Padding(0, 1),

		Modal: lipgloss.NewStyle().
			Background(surface).Foreground(text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),

		StatusOK:   lipgloss.NewStyle().Foreground(success),
		StatusWarn: lipgloss.NewStyle().Foreground(warning),
		StatusErr:  lipgloss.NewStyle().Foreground(danger),
	}
}

// statusStyle picks the colour of a connection label.
func (s Styles) statusStyle(label string) lipgloss.Style {
	switch label {
	case statusOnline:
		return s.StatusOK
	case statusNeedsLogin, statusUnknown:
		return s.StatusWarn
	default:
		return s.StatusErr
	}
}
