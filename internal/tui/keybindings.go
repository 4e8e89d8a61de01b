// Package tui: keyboard binding configuration.
package tui

// Keymap defines all keyboard shortcuts for the TUI.
type Keymap struct {
	Quit        string
	ForceQuit   string
	TabNext     string
	TabPrev     string
	TabRequest  string
	TabResponse string
	TabProgram  string
	Login       string
	LoginCustom string
	Connect     string
	Probe       string
	Clear       string
	Help        string
}

// defaultKeymap returns the default eportal TUI key bindings.
func defaultKeymap() Keymap {
	return Keymap{
		Quit:        "q",
		ForceQuit:   "ctrl+c",
		TabNext:     "tab",
		TabPrev:     "shift+tab",
		TabRequest:  "1",
		TabResponse: "2",
		TabProgram:  "3",
		Login:       "l",
		LoginCustom: "L",
		Connect:     "c",
		Probe:       "p",
		Clear:       "x",
		Help:        "?",
	}
}

// HelpText returns the keyboard shortcut reference displayed in the help modal.
func HelpText() string {
	return `
  LOGS
  ──────────────────────────────────────
  Tab / Shift+Tab    Cycle request/response/program
  1 2 3              Jump to a log
  ↑↓  PgUp PgDn      Scroll
  x                  Clear the current log

  ACTIONS
  ──────────────────────────────────────
  l                  Log in with this host's identity
  L                  Log in with the configured custom IP/MAC
  c                  Connect (probe, then log in if needed)
  p                  Probe only

  MISC
  ──────────────────────────────────────
  ?                  Toggle this help
  q                  Quit
  Ctrl+C             Force quit
`
}
