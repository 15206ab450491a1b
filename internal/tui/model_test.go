package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
)

type setCall struct {
	layer string
	value float64
}

type fakeBackend struct {
	status   dbus.Status
	sets     []setCall
	toggles  int
	restores int
	err      error
}

func (f *fakeBackend) Status() (dbus.Status, error) { return f.status, f.err }

func (f *fakeBackend) Toggle() (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.toggles++
	f.status.Visible = !f.status.Visible
	return f.status.Visible, nil
}

func (f *fakeBackend) SetAlpha(layer string, value float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sets = append(f.sets, setCall{layer, value})
	return value, nil
}

func (f *fakeBackend) RestoreDefaults() error {
	f.restores++
	return f.err
}

func (f *fakeBackend) Snapshot(string, int) (string, error) {
	return "/tmp/fsclock-test.png", f.err
}

func newLoadedModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	m := New(b, Options{Step: 0.05})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, m.loadStatus())
	require.True(t, m.loaded)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func defaultStatus() dbus.Status {
	return dbus.Status{
		Visible:         true,
		Effective:       true,
		BackgroundAlpha: 0.8,
		FaceAlpha:       0.9,
		HandsAlpha:      0.9,
		Displays:        2,
	}
}

func TestModel_IncreaseSendsClampedStep(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)
	assert.Equal(t, rowFace, m.cursor)

	m, cmd := updateCmd(t, m, keyMsg("right"))
	assert.Equal(t, 0.95, m.status.FaceAlpha)
	require.NotNil(t, cmd)

	m = update(t, m, cmd())
	m, cmd = updateCmd(t, m, keyMsg("l"))
	assert.Equal(t, 1.0, m.status.FaceAlpha)
	m = update(t, m, cmd())

	m, cmd = updateCmd(t, m, keyMsg("l"))
	assert.Equal(t, 1.0, m.status.FaceAlpha)
	cmd()

	assert.Equal(t, []setCall{{"face", 0.95}, {"face", 1}, {"face", 1}}, b.sets)
}

func TestModel_DecreaseHands(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)

	m = update(t, m, keyMsg("down"))
	assert.Equal(t, rowHands, m.cursor)

	m, cmd := updateCmd(t, m, keyMsg("left"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(alphaSetMsg)
	require.True(t, ok)
	assert.Equal(t, display.LayerHands, msg.layer)
	assert.Equal(t, 0.85, msg.applied)
	assert.Equal(t, 0.85, m.status.HandsAlpha)
}

func TestModel_MinMax(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)
	m = update(t, m, keyMsg("up"))
	assert.Equal(t, rowBackground, m.cursor)

	m, cmd := updateCmd(t, m, keyMsg("0"))
	assert.Zero(t, m.status.BackgroundAlpha)
	cmd()
	m, cmd = updateCmd(t, m, keyMsg("1"))
	assert.Equal(t, 1.0, m.status.BackgroundAlpha)
	cmd()

	assert.Equal(t, []setCall{{"background", 0}, {"background", 1}}, b.sets)
}

func TestModel_CursorWraps(t *testing.T) {
	m := newLoadedModel(t, &fakeBackend{status: defaultStatus()})
	m = update(t, m, keyMsg("down"))
	m = update(t, m, keyMsg("down"))
	assert.Equal(t, rowVisible, m.cursor)
	m = update(t, m, keyMsg("up"))
	assert.Equal(t, rowHands, m.cursor)
}

func TestModel_Toggle(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)

	_, cmd := updateCmd(t, m, keyMsg(" "))
	require.NotNil(t, cmd)
	assert.Equal(t, actionMsg{text: "Clock hidden"}, cmd())
	assert.Equal(t, 1, b.toggles)
}

func TestModel_ArrowsOnVisibilityRowToggle(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)
	m.cursor = rowVisible

	_, cmd := updateCmd(t, m, keyMsg("right"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, b.toggles)
	assert.Empty(t, b.sets)
}

func TestModel_RestoreAndSnapshot(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)

	_, cmd := updateCmd(t, m, keyMsg("r"))
	assert.Equal(t, actionMsg{text: "Defaults restored"}, cmd())
	assert.Equal(t, 1, b.restores)

	_, cmd = updateCmd(t, m, keyMsg("s"))
	assert.Equal(t, actionMsg{text: "Saved /tmp/fsclock-test.png"}, cmd())
}

func TestModel_BackendErrorFlashes(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := newLoadedModel(t, b)
	b.err = errors.New("bus gone")

	m, cmd := updateCmd(t, m, keyMsg("right"))
	m, _ = updateCmd(t, m, cmd())

	m = update(t, m, statusMsg{text: "Failed to set face: bus gone", isErr: true})
	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "bus gone")

	m = update(t, m, clearStatusMsg{})
	assert.Empty(t, m.statusMsg)
}

func TestModel_IgnoresSlidersUntilLoaded(t *testing.T) {
	b := &fakeBackend{status: defaultStatus()}
	m := New(b, Options{})

	_, cmd := updateCmd(t, m, keyMsg("right"))
	assert.Nil(t, cmd)
	assert.Empty(t, b.sets)
}

func TestModel_View(t *testing.T) {
	st := defaultStatus()
	st.Effective = false
	st.FullscreenApps = []string{"0x1"}
	m := newLoadedModel(t, &fakeBackend{status: st})

	view := m.View()
	assert.Contains(t, view, "fsclock preferences")
	assert.Contains(t, view, "Background")
	assert.Contains(t, view, "90%")
	assert.Contains(t, view, "suppressed by full-screen")
	assert.Contains(t, view, "2 display(s)")
	assert.Contains(t, view, "1 full-screen app(s)")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(&fakeBackend{}, Options{})
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_QuitAndHelp(t *testing.T) {
	m := newLoadedModel(t, &fakeBackend{status: defaultStatus()})

	m = update(t, m, keyMsg("?"))
	assert.True(t, m.showHelp)

	_, cmd := updateCmd(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ChangesTriggerRefresh(t *testing.T) {
	changes := make(chan struct{}, 1)
	m := New(&fakeBackend{status: defaultStatus()}, Options{Changes: changes})

	changes <- struct{}{}
	assert.Equal(t, refreshMsg{}, m.watchForChanges())

	close(changes)
	assert.Nil(t, m.watchForChanges())
}

func TestRoundStep(t *testing.T) {
	assert.Equal(t, 0.95, roundStep(0.9+0.05))
	assert.Equal(t, 1.0, roundStep(1.2))
	assert.Equal(t, 0.0, roundStep(-0.1))
}
