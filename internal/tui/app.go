// Package tui defines the Bubble Tea model for eportal's interactive log viewer.
//
// The viewer shows the engine's three log streams (request, response and
// program) in separate tabs and triggers login, connect and probe runs in the
// background.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/core/logger"
	"github.com/f9-o/eportal/internal/portal"
	"github.com/f9-o/eportal/internal/tui/components"
	"github.com/f9-o/eportal/pkg/netutil"
)

// maxLogEntries bounds each tab's history.
const maxLogEntries = 500

// Connection labels shown in the header.
const (
	statusUnknown    = "unknown"
	statusOnline     = "online"
	statusNeedsLogin = "needs login"
	statusFailed     = "login failed"
	statusProbeError = "portal unreachable"
)

// Engine is the part of [*portal.Orchestrator] the viewer drives.
type Engine interface {
	LoginSequence(ctx context.Context, override *v1.DeviceIdentity) (portal.Outcome, error)
	Ensure(ctx context.Context) (portal.Outcome, error)
	Probe(ctx context.Context) v1.ProbeResult
}

var _ Engine = (*portal.Orchestrator)(nil)

// Config carries dependencies into the TUI app.
type Config struct {
	// Context bounds every action the viewer starts; quitting cancels it.
	// Defaults to context.Background().
	Context context.Context

	Engine    Engine
	Sink      *Sink
	Log       *logger.Logger
	UserID    string
	PortalURL string

	// AutoLogin runs a connect sequence as soon as the viewer starts.
	AutoLogin bool

	// Custom is the identity used by the "login (custom)" action; nil disables it.
	Custom *v1.DeviceIdentity

	// Record persists a finished login or connect run. May be nil.
	Record func(op string, started time.Time, out portal.Outcome, err error)
}

// Tab identifies which log is displayed.
type Tab int

const (
	TabRequest Tab = iota
	TabResponse
	TabProgram
	numTabs
)

func (t Tab) category() string {
	switch t {
	case TabRequest:
		return v1.CategoryRequest
	case TabResponse:
		return v1.CategoryResponse
	default:
		return v1.CategoryProgram
	}
}

func tabOf(category string) Tab {
	switch category {
	case v1.CategoryRequest:
		return TabRequest
	case v1.CategoryResponse:
		return TabResponse
	default:
		return TabProgram
	}
}

// Model is the root Bubble Tea model (Elm architecture).
type Model struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	// Dimensions
	width  int
	height int

	// Logs
	tab       Tab
	logs      [numTabs][]string
	viewports [numTabs]viewport.Model

	// Sub-components
	header  components.Header
	tabs    components.Tabs
	footer  components.Footer
	modal   *components.Modal
	spinner spinner.Model

	// busy names the running action ("" when idle).
	busy string

	styles Styles
	keys   Keymap
}

// entryMsg carries one observer notification.
type entryMsg Entry

// actionDoneMsg reports the end of a login or connect run.
type actionDoneMsg struct {
	op      string
	started time.Time
	out     portal.Outcome
	err     error
}

// probeDoneMsg reports the end of a probe.
type probeDoneMsg v1.ProbeResult

// New constructs a new TUI Model.
func New(cfg Config) *Model {
	styles := newStyles()
	m := &Model{
		cfg:     cfg,
		tab:     TabProgram,
		header:  components.NewHeader(cfg.UserID, netutil.HostOf(cfg.PortalURL)),
		tabs:    components.NewTabs("request", "response", "program"),
		footer:  components.NewFooter(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:  styles,
		keys:    defaultKeymap(),
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	m.ctx, m.cancel = context.WithCancel(parent)
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
		m.viewports[i].Style = styles.LogViewport
	}
	m.tabs.Select(int(m.tab))
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Init
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Init() tea.Cmd {
	var first tea.Cmd
	if m.cfg.AutoLogin {
		first = m.startConnect()
	} else {
		first = m.startProbe()
	}
	return tea.Batch(m.waitForEntry(), first)
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for i := range m.viewports {
			m.viewports[i].Width = m.width
			m.viewports[i].Height = max(m.height-6, 1)
		}

	case tea.KeyMsg:
		// Modal intercepts key events when open
		if m.modal != nil {
			cmd, done := m.modal.HandleKey(msg)
			if done {
				m.modal = nil
			}
			return m, cmd
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case entryMsg:
		m.appendEntry(Entry(msg))
		cmds = append(cmds, m.waitForEntry())

	case actionDoneMsg:
		m.finishAction(msg)

	case probeDoneMsg:
		m.busy = ""
		m.header.SetBusy("")
		switch msg.State {
		case v1.ProbeOnline:
			m.header.SetStatus(statusOnline)
		case v1.ProbeNeedsLogin:
			m.header.SetStatus(statusNeedsLogin)
		default:
			m.header.SetStatus(statusProbeError)
			m.footer.SetError(msg.Err)
		}

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.header.SetBusy(m.spinner.View())
		return m, cmd
	}

	// Propagate to the visible viewport (scrolling keys, mouse).
	var vpCmd tea.Cmd
	m.viewports[m.tab], vpCmd = m.viewports[m.tab].Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input when no modal is open. The boolean is
// false for keys the viewport should see.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	kb := m.keys

	switch msg.String() {
	case kb.Quit, kb.ForceQuit:
		m.cancel()
		return tea.Quit, true

	case kb.TabNext:
		m.selectTab((m.tab + 1) % numTabs)
	case kb.TabPrev:
		m.selectTab((m.tab + numTabs - 1) % numTabs)
	case kb.TabRequest:
		m.selectTab(TabRequest)
	case kb.TabResponse:
		m.selectTab(TabResponse)
	case kb.TabProgram:
		m.selectTab(TabProgram)

	case kb.Login:
		return m.startLogin(nil), true
	case kb.LoginCustom:
		if m.cfg.Custom == nil {
			m.footer.SetError(fmt.Errorf("no custom_ip/custom_mac configured"))
			return nil, true
		}
		return m.startLogin(m.cfg.Custom), true
	case kb.Connect:
		return m.startConnect(), true
	case kb.Probe:
		return m.startProbe(), true

	case kb.Clear:
		tab := m.tab
		m.modal = components.NewConfirmModal(
			fmt.Sprintf("Clear the %s log?", tab.category()),
			fmt.Sprintf("  %d entries will be discarded.", len(m.logs[tab])),
			m.styles.Modal,
			func() tea.Cmd {
				m.clearTab(tab)
				return nil
			},
		)

	case kb.Help:
		m.modal = components.NewHelpModal(m.styles.Modal, HelpText())

	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) selectTab(t Tab) {
	m.tab = t
	m.tabs.Select(int(t))
}

func (m *Model) appendEntry(e Entry) {
	t := tabOf(e.Category)
	line := e.Message
	if t == TabProgram {
		line = e.Time.Format("15:04:05") + "  " + e.Message
	}
	m.logs[t] = append(m.logs[t], line)
	if len(m.logs[t]) > maxLogEntries {
		m.logs[t] = m.logs[t][len(m.logs[t])-maxLogEntries:]
	}
	m.tabs.SetCount(int(t), len(m.logs[t]))
	m.viewports[t].SetContent(strings.Join(m.logs[t], "\n"))
	m.viewports[t].GotoBottom()
}

func (m *Model) clearTab(t Tab) {
	m.logs[t] = nil
	m.tabs.SetCount(int(t), 0)
	m.viewports[t].SetContent("")
}

func (m *Model) finishAction(msg actionDoneMsg) {
	m.busy = ""
	m.header.SetBusy("")
	m.footer.SetError(msg.err)
	switch {
	case msg.out.Success:
		m.header.SetStatus(statusOnline)
	case msg.err != nil && msg.out.Attempts == 0:
		m.header.SetStatus(statusUnknown)
	default:
		m.header.SetStatus(statusFailed)
	}
	if m.cfg.Record != nil {
		m.cfg.Record(msg.op, msg.started, msg.out, msg.err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// View
// ─────────────────────────────────────────────────────────────────────────────

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.modal != nil {
		return m.modal.Overlay(m.width, m.height)
	}

	header := m.header.View(m.width)
	tabs := m.tabs.View(m.width)
	title := m.styles.PanelTitle.Render(strings.ToUpper(m.tab.category())+" LOG") +
		m.styles.statusStyle(m.header.Status()).Render("● "+m.header.Status())
	footer := m.footer.View(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, title, m.viewports[m.tab].View(), footer)
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands (background engine runs)
// ─────────────────────────────────────────────────────────────────────────────

// waitForEntry blocks on the sink until the next notification.
func (m *Model) waitForEntry() tea.Cmd {
	if m.cfg.Sink == nil {
		return nil
	}
	ch := m.cfg.Sink.Entries()
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return entryMsg(e)
	}
}

// begin marks the model busy. It returns false when an action is running.
func (m *Model) begin(name string) bool {
	if m.busy != "" {
		m.footer.SetError(fmt.Errorf("%s is still running", m.busy))
		return false
	}
	m.busy = name
	m.footer.SetError(nil)
	return true
}

func (m *Model) startLogin(override *v1.DeviceIdentity) tea.Cmd {
	if !m.begin("login") {
		return nil
	}
	engine, ctx := m.cfg.Engine, m.ctx
	run := func() tea.Msg {
		started := time.Now()
		out, err := engine.LoginSequence(ctx, override)
		return actionDoneMsg{op: "login", started: started, out: out, err: err}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) startConnect() tea.Cmd {
	if !m.begin("connect") {
		return nil
	}
	engine, ctx := m.cfg.Engine, m.ctx
	run := func() tea.Msg {
		started := time.Now()
		out, err := engine.Ensure(ctx)
		return actionDoneMsg{op: "connect", started: started, out: out, err: err}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) startProbe() tea.Cmd {
	if !m.begin("probe") {
		return nil
	}
	engine, ctx := m.cfg.Engine, m.ctx
	run := func() tea.Msg {
		return probeDoneMsg(engine.Probe(ctx))
	}
	return tea.Batch(run, m.spinner.Tick)
}
