// Package components: TUI sub-components for the eportal log viewer.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─────────────────────────────────────────────────────────────────────────────
// Header component
// ─────────────────────────────────────────────────────────────────────────────

// Header renders the top status bar.
type Header struct {
	user   string
	host   string
	status string
	busy   string // spinner frame, empty when idle
}

// NewHeader creates a Header for the given account and portal host.
func NewHeader(user, host string) Header {
	if user == "" {
		user = "(no account)"
	}
	return Header{user: user, host: host, status: "unknown"}
}

func (h *Header) SetStatus(s string) { h.status = s }
func (h *Header) SetBusy(frame string) { h.busy = frame }

// Status returns the connection label currently shown.
func (h *Header) Status() string { return h.status }

// View renders the header bar. Accepts total terminal width.
func (h *Header) View(width int) string {
	left := fmt.Sprintf(" ◉ EPORTAL  %s @ %s ", h.user, h.host)
	right := fmt.Sprintf(" %s ", h.status)
	if h.busy != "" {
		right = fmt.Sprintf(" %s %s ", h.busy, h.status)
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color("#7B8CDE")).
		Foreground(lipgloss.Color("#0D0F18")).
		Bold(true).
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tabs component
// ─────────────────────────────────────────────────────────────────────────────

// Tabs renders the log category selector.
type Tabs struct {
	names    []string
	counts   []int
	selected int
}

// NewTabs creates Tabs with the given titles.
func NewTabs(names ...string) Tabs {
	return Tabs{names: names, counts: make([]int, len(names))}
}

// Select makes tab i active.
func (t *Tabs) Select(i int) { t.selected = i }

// SetCount sets the entry counter shown next to tab i.
func (t *Tabs) SetCount(i, n int) { t.counts[i] = n }

// View renders the tab bar.
func (t *Tabs) View(width int) string {
	parts := make([]string, len(t.names))
	for i, name := range t.names {
		label := fmt.Sprintf(" %d %s (%d) ", i+1, name, t.counts[i])
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#4A5568")).Padding(0, 1)
		if i == t.selected {
			style = style.Foreground(lipgloss.Color("#56E0C8")).Bold(true).Underline(true)
		}
		parts[i] = style.Render(label)
	}
	return lipgloss.NewStyle().
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#4A5568")).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

// ─────────────────────────────────────────────────────────────────────────────
// Footer component
// ─────────────────────────────────────────────────────────────────────────────

// Footer renders the bottom hint bar.
type Footer struct {
	err error
}

// NewFooter creates a Footer.
func NewFooter() Footer { return Footer{} }

// SetError sets an error message to display. A nil err restores the hints.
func (f *Footer) SetError(err error) { f.err = err }

// View renders the footer.
func (f *Footer) View(width int) string {
	hints := []struct{ key, desc string }{
		{"l", "login"}, {"L", "login (custom)"}, {"c", "connect"}, {"p", "probe"},
		{"tab", "next log"}, {"x", "clear"}, {"?", "help"}, {"q", "quit"},
	}

	content := ""
	for _, h := range hints {
		content += lipgloss.NewStyle().Foreground(lipgloss.Color("#7B8CDE")).Bold(true).Render(h.key)
		content += lipgloss.NewStyle().Foreground(lipgloss.Color("#4A5568")).Render(" " + h.desc + "  ")
	}

	if f.err != nil {
		content = lipgloss.NewStyle().Foreground(lipgloss.Color("#F56565")).
			Render("Error: " + f.err.Error())
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#171A2B")).
		Width(width).Padding(0, 1).
		Render(content)
}
