// Package tui provides the BubbleTea-based preferences screen.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
)

// Backend is the clock being configured, normally a *dbus.Client.
type Backend interface {
	Status() (dbus.Status, error)
	Toggle() (bool, error)
	SetAlpha(layer string, value float64) (float64, error)
	RestoreDefaults() error
	Snapshot(path string, size int) (string, error)
}

// Options configures the preferences screen.
type Options struct {
	// Step is the slider change per key press.
	Step     float64
	ShowHelp bool
	// Changes, when set, delivers a value whenever the clock state changed
	// elsewhere, e.g. from a StateChanged signal.
	Changes <-chan struct{}
	// Offline marks a backend that edits persisted settings because
	// fsclockd is not running.
	Offline bool
}

const defaultStep = 0.05

// row is a selectable line of the screen.
type row int

const (
	rowVisible row = iota
	rowBackground
	rowFace
	rowHands
	rowCount
)

func (r row) layer() display.Layer {
	switch r {
	case rowBackground:
		return display.LayerBackground
	case rowFace:
		return display.LayerFace
	case rowHands:
		return display.LayerHands
	default:
		return ""
	}
}

func (r row) label() string {
	switch r {
	case rowVisible:
		return "Clock"
	case rowBackground:
		return "Background"
	case rowFace:
		return "Face"
	case rowHands:
		return "Hands"
	default:
		return ""
	}
}

// Model is the main TUI model.
type Model struct {
	backend Backend
	opts    Options
	keys    KeyMap
	help    help.Model
	bar     progress.Model

	cursor   row
	status   dbus.Status
	loaded   bool
	showHelp bool
	width    int
	ready    bool

	// Status message
	statusMsg string
	statusErr bool
}

// New creates a new TUI model.
func New(backend Backend, opts Options) Model {
	if opts.Step <= 0 || opts.Step > 1 {
		opts.Step = defaultStep
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	return Model{
		backend:  backend,
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		bar:      bar,
		cursor:   rowFace,
		showHelp: opts.ShowHelp,
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadStatus, m.watchForChanges)
}

type statusLoadedMsg struct {
	status dbus.Status
	err    error
}

type alphaSetMsg struct {
	layer   display.Layer
	applied float64
	err     error
}

type actionMsg struct {
	text string
	err  error
}

type refreshMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// loadStatus fetches the current state from the backend.
func (m Model) loadStatus() tea.Msg {
	st, err := m.backend.Status()
	return statusLoadedMsg{status: st, err: err}
}

// watchForChanges waits for an external change.
func (m Model) watchForChanges() tea.Msg {
	if m.opts.Changes == nil {
		return nil
	}
	if _, ok := <-m.opts.Changes; !ok {
		return nil
	}
	return refreshMsg{}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ready = true
		m.help.Width = msg.Width
		m.bar.Width = max(10, min(40, msg.Width-30))
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			return m, m.flash("Failed to read status: "+msg.err.Error(), true)
		}
		m.status = msg.status
		m.loaded = true
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadStatus, m.watchForChanges)

	case alphaSetMsg:
		if msg.err != nil {
			return m, tea.Batch(m.flash("Failed to set "+string(msg.layer)+": "+msg.err.Error(), true), m.loadStatus)
		}
		m.setAlpha(msg.layer, msg.applied)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			return m, tea.Batch(m.flash(msg.text+": "+msg.err.Error(), true), m.loadStatus)
		}
		return m, tea.Batch(m.flash(msg.text, false), m.loadStatus)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) flash(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor = (m.cursor + rowCount - 1) % rowCount
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor = (m.cursor + 1) % rowCount
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggle

	case key.Matches(msg, m.keys.Decrease):
		if m.cursor == rowVisible {
			return m, m.toggle
		}
		return m.nudge(-m.opts.Step)

	case key.Matches(msg, m.keys.Increase):
		if m.cursor == rowVisible {
			return m, m.toggle
		}
		return m.nudge(m.opts.Step)

	case key.Matches(msg, m.keys.Min):
		return m.set(0)

	case key.Matches(msg, m.keys.Max):
		return m.set(1)

	case key.Matches(msg, m.keys.Restore):
		return m, m.restore

	case key.Matches(msg, m.keys.Snapshot):
		return m, m.snapshot

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadStatus
	}

	return m, nil
}

func (m Model) nudge(delta float64) (tea.Model, tea.Cmd) {
	l := m.cursor.layer()
	if l == "" || !m.loaded {
		return m, nil
	}
	return m.set(m.alpha(l) + delta)
}

// set applies v to the selected slider immediately and sends it to the
// backend; the reply carries the clamped value.
func (m Model) set(v float64) (tea.Model, tea.Cmd) {
	l := m.cursor.layer()
	if l == "" || !m.loaded {
		return m, nil
	}
	v = roundStep(v)
	m.setAlpha(l, v)

	backend := m.backend
	return m, func() tea.Msg {
		applied, err := backend.SetAlpha(string(l), v)
		return alphaSetMsg{layer: l, applied: applied, err: err}
	}
}

func (m Model) toggle() tea.Msg {
	visible, err := m.backend.Toggle()
	if err != nil {
		return actionMsg{text: "Toggle failed", err: err}
	}
	if visible {
		return actionMsg{text: "Clock shown"}
	}
	return actionMsg{text: "Clock hidden"}
}

func (m Model) restore() tea.Msg {
	if err := m.backend.RestoreDefaults(); err != nil {
		return actionMsg{text: "Restore failed", err: err}
	}
	return actionMsg{text: "Defaults restored"}
}

func (m Model) snapshot() tea.Msg {
	path, err := m.backend.Snapshot("", 0)
	if err != nil {
		return actionMsg{text: "Snapshot failed", err: err}
	}
	return actionMsg{text: "Saved " + path}
}

func (m Model) alpha(l display.Layer) float64 {
	switch l {
	case display.LayerBackground:
		return m.status.BackgroundAlpha
	case display.LayerFace:
		return m.status.FaceAlpha
	case display.LayerHands:
		return m.status.HandsAlpha
	default:
		return 0
	}
}

func (m *Model) setAlpha(l display.Layer, v float64) {
	switch l {
	case display.LayerBackground:
		m.status.BackgroundAlpha = v
	case display.LayerFace:
		m.status.FaceAlpha = v
	case display.LayerHands:
		m.status.HandsAlpha = v
	}
}

// roundStep clamps v to [0,1] and drops float noise from repeated steps.
func roundStep(v float64) float64 {
	v = math.Round(v*1000) / 1000
	return math.Max(0, math.Min(1, v))
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)
	labelStyle := lipgloss.NewStyle().Width(12)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("fsclock preferences"))
	sb.WriteString("\n")

	if !m.loaded {
		sb.WriteString(dimStyle.Render("Loading..."))
		sb.WriteString("\n")
	} else {
		for r := row(0); r < rowCount; r++ {
			marker := "  "
			label := labelStyle.Render(r.label())
			if r == m.cursor {
				marker = cursorStyle.Render("> ")
				label = cursorStyle.Inherit(labelStyle).Render(r.label())
			}
			sb.WriteString(marker + label + " " + m.renderValue(r) + "\n")
		}
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(m.summary()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		sb.WriteString(statusStyle.Render(m.statusMsg))
	} else if m.showHelp {
		sb.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return sb.String()
}

func (m Model) renderValue(r row) string {
	if r == rowVisible {
		switch {
		case !m.status.Visible:
			return "hidden"
		case m.opts.Offline:
			return "shown (fsclockd not running)"
		case m.status.Suppressed():
			return "shown (suppressed by full-screen)"
		default:
			return "shown"
		}
	}
	v := m.alpha(r.layer())
	return m.bar.ViewAs(v) + fmt.Sprintf(" %3d%%", int(math.Round(v*100)))
}

func (m Model) summary() string {
	parts := []string{fmt.Sprintf("%d display(s)", m.status.Displays)}
	if n := len(m.status.FullscreenApps); n > 0 {
		parts = append(parts, fmt.Sprintf("%d full-screen app(s)", n))
	}
	if changed := m.status.Changed(); !changed.IsZero() {
		parts = append(parts, "changed "+humanize.Time(changed))
	}
	if m.opts.Offline {
		parts = append(parts, "editing saved settings")
	}
	return strings.Join(parts, " · ")
}
