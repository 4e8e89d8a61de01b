package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─────────────────────────────────────────────────────────────────────────────
// Modal
// ─────────────────────────────────────────────────────────────────────────────

// Modal is a pop-over dialog.
type Modal struct {
	title     string
	body      string
	style     lipgloss.Style
	onConfirm func() tea.Cmd
	typ       modalType
}

type modalType int

const (
	modalConfirm modalType = iota
	modalHelp
)

// NewConfirmModal creates a yes/no confirmation modal.
func NewConfirmModal(title, body string, style lipgloss.Style, onConfirm func() tea.Cmd) *Modal {
	return &Modal{
		title:     title,
		body:      body,
		style:     style,
		onConfirm: onConfirm,
		typ:       modalConfirm,
	}
}

// NewHelpModal creates the keyboard help modal.
func NewHelpModal(style lipgloss.Style, body string) *Modal {
	return &Modal{
		title: "Keyboard Shortcuts",
		body:  body,
		style: style,
		typ:   modalHelp,
	}
}

// HandleKey processes a key for the modal. Returns (cmd, done).
func (m *Modal) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "esc", "q", "n":
		return nil, true
	case "enter", "y":
		if m.typ == modalConfirm && m.onConfirm != nil {
			return m.onConfirm(), true
		}
		return nil, true
	}
	return nil, false
}

// Overlay renders the modal centred in a width x height area.
func (m *Modal) Overlay(width, height int) string {
	content := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ECC94B")).Bold(true).
		Render(m.title) + "\n\n"
	content += m.body

	if m.typ == modalConfirm {
		content += "\n\n  [y/Enter] Confirm   [n/Esc] Cancel"
	} else {
		content += "\n\n  [Esc] Close"
	}

	box := m.style.Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// IsConfirm reports whether the modal asks for confirmation.
func (m *Modal) IsConfirm() bool {
	return m.typ == modalConfirm
}

// Title returns the modal title.
func (m *Modal) Title() string {
	return strings.TrimSpace(m.title)
}
