// Package pprint provides rich terminal output formatting for the eportal CLI:
// status lines, key-value panels, tables and a spinner.
package pprint

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Out and ErrOut are where all helpers write. Tests swap them for buffers.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

// ─────────────────────────────────────────────────────────────────────────────
// Colour palette
// ─────────────────────────────────────────────────────────────────────────────

var (
	ColorPrimary = lipgloss.Color("#7B8CDE") // blue-purple
	ColorAccent  = lipgloss.Color("#56E0C8") // Teal
	ColorSuccess = lipgloss.Color("#48BB78") // Green
	ColorWarning = lipgloss.Color("#F6AD55") // Amber
	ColorError   = lipgloss.Color("#FC8181") // Red
	ColorMuted   = lipgloss.Color("#4A5568") // Grey
	ColorText    = lipgloss.Color("#E2E8F0") // Off-white
)

// ─────────────────────────────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────────────────────────────

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleAccent  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Width(16)
)

// ─────────────────────────────────────────────────────────────────────────────
// Simple output helpers
// ─────────────────────────────────────────────────────────────────────────────

// Success prints a green ✓ success line.
func Success(format string, args ...any) {
	fmt.Fprintln(Out, StyleSuccess.Render("✓ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Warn prints an amber ⚠ warning line.
func Warn(format string, args ...any) {
	fmt.Fprintln(Out, StyleWarning.Render("⚠ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Error prints a red ✗ error line to ErrOut.
func Error(format string, args ...any) {
	fmt.Fprintln(ErrOut, StyleError.Render("✗ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Info prints a dimmed info line.
func Info(format string, args ...any) {
	fmt.Fprintln(Out, StyleMuted.Render("  "+fmt.Sprintf(format, args...)))
}

// Header prints a section header.
func Header(title string) {
	bar := strings.Repeat("─", 60)
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, StylePrimary.Render(bar))
	fmt.Fprintln(Out, StylePrimary.Render(" ◉ "+strings.ToUpper(title)))
	fmt.Fprintln(Out, StylePrimary.Render(bar))
}

// KV prints a labelled key-value pair.
func KV(key, value string) {
	fmt.Fprintln(Out, StyleLabel.Render(key)+StyleText.Render(value))
}

// Block prints a multi-line block indented under the previous line.
func Block(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintln(Out, StyleMuted.Render("    "+line))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Table
// ─────────────────────────────────────────────────────────────────────────────

// Table renders a simple terminal table with coloured headers.
type Table struct {
	headers []string
	rows    [][]string
	out     io.Writer
}

// NewTable creates a new Table writing to Out.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, out: Out}
}

// AddRow appends a data row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render prints the table.
func (t *Table) Render() {
	// Column widths are in display cells so CJK text lines up.
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	fmt.Fprintln(t.out)
	header := ""
	for i, h := range t.headers {
		header += pad(h, widths[i]+2)
	}
	fmt.Fprintln(t.out, StylePrimary.Render(header))

	sep := ""
	for _, w := range widths {
		sep += strings.Repeat("─", w+2)
	}
	fmt.Fprintln(t.out, StyleMuted.Render(sep))

	for _, row := range t.rows {
		line := ""
		for i, cell := range row {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			line += pad(cell, w+2)
		}
		fmt.Fprintln(t.out, StyleText.Render(line))
	}
	fmt.Fprintln(t.out)
}

func pad(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Spinner
// ─────────────────────────────────────────────────────────────────────────────

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a non-blocking terminal spinner.
type Spinner struct {
	label  string
	done   chan struct{}
	mu     sync.Mutex
	active bool
}

// NewSpinner creates a Spinner with the given label.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label, done: make(chan struct{})}
}

// Start begins the spinner animation in a goroutine.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(Out, "\r%s %s ", StylePrimary.Render(frame), StyleText.Render(s.label))
				i++
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	close(s.done)
	s.active = false

	if success {
		fmt.Fprintf(Out, "\r%s %s\n", StyleSuccess.Render("✓"), StyleText.Render(s.label))
	} else {
		fmt.Fprintf(Out, "\r%s %s\n", StyleError.Render("✗"), StyleText.Render(s.label))
	}
}
