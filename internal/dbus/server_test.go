package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/fsclock/internal/display"
)

type fakeController struct {
	visible   bool
	alphas    map[display.Layer]float64
	sources   []string
	fsEvents  []string
	snapshots []string
	failWith  error
	status    Status
}

func newFakeController() *fakeController {
	return &fakeController{alphas: make(map[display.Layer]float64)}
}

func (f *fakeController) Toggle(source string) (bool, error) {
	f.sources = append(f.sources, source)
	f.visible = !f.visible
	return f.visible, f.failWith
}

func (f *fakeController) Show(source string) error {
	f.sources = append(f.sources, source)
	f.visible = true
	return f.failWith
}

func (f *fakeController) Hide(source string) error {
	f.sources = append(f.sources, source)
	f.visible = false
	return f.failWith
}

func (f *fakeController) SetAlpha(l display.Layer, v float64, source string) (float64, error) {
	f.sources = append(f.sources, source)
	if v > 1 {
		v = 1
	}
	f.alphas[l] = v
	return v, f.failWith
}

func (f *fakeController) RestoreDefaults(source string) error {
	f.sources = append(f.sources, source)
	return f.failWith
}

func (f *fakeController) Status() Status { return f.status }

func (f *fakeController) Snapshot(path string, size int) (string, error) {
	f.snapshots = append(f.snapshots, path)
	if path == "" {
		path = "/tmp/default.png"
	}
	return path, f.failWith
}

func (f *fakeController) NotifyFullscreen(app string, fullscreen bool) {
	state := "exit"
	if fullscreen {
		state = "enter"
	}
	f.fsEvents = append(f.fsEvents, app+":"+state)
}

func newObject(ctrl Controller) *controlObject {
	return NewControlServer(ctrl, nil).object
}

func TestControlObject_Visibility(t *testing.T) {
	ctrl := newFakeController()
	obj := newObject(ctrl)

	visible, derr := obj.Toggle()
	assert.Nil(t, derr)
	assert.True(t, visible)

	assert.Nil(t, obj.Hide())
	assert.False(t, ctrl.visible)
	assert.Nil(t, obj.Show())
	assert.True(t, ctrl.visible)

	for _, s := range ctrl.sources {
		assert.Equal(t, SourceDBus, s)
	}
}

func TestControlObject_SetAlpha(t *testing.T) {
	ctrl := newFakeController()
	obj := newObject(ctrl)

	applied, derr := obj.SetAlpha("face", 1.5)
	assert.Nil(t, derr)
	assert.Equal(t, 1.0, applied)
	assert.Equal(t, 1.0, ctrl.alphas[display.LayerFace])

	applied, derr = obj.SetAlpha("bg", 0.3)
	assert.Nil(t, derr)
	assert.Equal(t, 0.3, applied)
	assert.Equal(t, 0.3, ctrl.alphas[display.LayerBackground])
}

func TestControlObject_SetAlphaUnknownLayer(t *testing.T) {
	ctrl := newFakeController()
	obj := newObject(ctrl)

	_, derr := obj.SetAlpha("glow", 0.5)
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)
	assert.Empty(t, ctrl.alphas)
}

func TestControlObject_ErrorsBecomeFailed(t *testing.T) {
	ctrl := newFakeController()
	ctrl.failWith = errors.New("boom")
	obj := newObject(ctrl)

	derr := obj.Show()
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)
	assert.Contains(t, derr.Error(), "boom")

	_, derr = obj.Toggle()
	assert.NotNil(t, derr)
	assert.NotNil(t, obj.RestoreDefaults())
}

func TestControlObject_GetStatus(t *testing.T) {
	ctrl := newFakeController()
	ctrl.status = Status{
		Visible:         true,
		Effective:       false,
		BackgroundAlpha: 0.8,
		FaceAlpha:       0.7,
		HandsAlpha:      0.6,
		Displays:        2,
		ChangedAt:       1700000000,
	}
	obj := newObject(ctrl)

	visible, effective, bg, face, hands, displays, apps, changed, derr := obj.GetStatus()
	assert.Nil(t, derr)
	assert.True(t, visible)
	assert.False(t, effective)
	assert.Equal(t, 0.8, bg)
	assert.Equal(t, 0.7, face)
	assert.Equal(t, 0.6, hands)
	assert.Equal(t, int32(2), displays)
	assert.NotNil(t, apps, "arrays are never nil on the wire")
	assert.Empty(t, apps)
	assert.Equal(t, int64(1700000000), changed)
	assert.True(t, ctrl.status.Suppressed())
}

func TestControlObject_Snapshot(t *testing.T) {
	ctrl := newFakeController()
	obj := newObject(ctrl)

	out, derr := obj.Snapshot("", 256)
	assert.Nil(t, derr)
	assert.Equal(t, "/tmp/default.png", out)

	_, derr = obj.Snapshot("/tmp/x.png", -1)
	assert.NotNil(t, derr)
	assert.Len(t, ctrl.snapshots, 1, "negative size is rejected before the controller")
}

func TestControlObject_NotifyFullscreen(t *testing.T) {
	ctrl := newFakeController()
	obj := newObject(ctrl)

	assert.Nil(t, obj.NotifyFullscreen("mpv", true))
	assert.Nil(t, obj.NotifyFullscreen("mpv", false))
	assert.Equal(t, []string{"mpv:enter", "mpv:exit"}, ctrl.fsEvents)
}

func TestControlMethods_MatchExportedObject(t *testing.T) {
	names := make(map[string]bool)
	for _, m := range controlMethods() {
		names[m.Name] = true
	}
	for _, want := range []string{"Toggle", "Show", "Hide", "SetAlpha", "RestoreDefaults", "GetStatus", "Snapshot", "NotifyFullscreen"} {
		assert.True(t, names[want], want)
	}
	require.Len(t, controlSignals(), 1)
	assert.Equal(t, "StateChanged", controlSignals()[0].Name)
}

func TestParseStateChanged(t *testing.T) {
	tests := []struct {
		name      string
		sig       *dbus.Signal
		visible   bool
		effective bool
		ok        bool
	}{
		{"valid", &dbus.Signal{Name: Interface + ".StateChanged", Body: []any{true, false}}, true, false, true},
		{"nil", nil, false, false, false},
		{"other member", &dbus.Signal{Name: Interface + ".Other", Body: []any{true, true}}, false, false, false},
		{"short body", &dbus.Signal{Name: Interface + ".StateChanged", Body: []any{true}}, false, false, false},
		{"wrong types", &dbus.Signal{Name: Interface + ".StateChanged", Body: []any{"yes", true}}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible, effective, ok := parseStateChanged(tt.sig)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.visible, visible)
				assert.Equal(t, tt.effective, effective)
			}
		})
	}
}

func TestNotificationHints(t *testing.T) {
	n := &Notification{
		AppName:   "fsclockd",
		Summary:   "Config error",
		Urgency:   UrgencyCritical,
		Category:  "fsclock.config",
		Transient: true,
	}

	hints := n.Hints()
	assert.Equal(t, byte(2), hints["urgency"].Value())
	assert.Equal(t, "fsclock.config", hints["category"].Value())
	assert.Equal(t, true, hints["transient"].Value())
	assert.Equal(t, "fsclockd", hints["desktop-entry"].Value())

	plain := (&Notification{}).Hints()
	assert.Len(t, plain, 1)
	assert.Equal(t, byte(0), plain["urgency"].Value())
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "low", UrgencyLow.String())
	assert.Equal(t, "normal", UrgencyNormal.String())
	assert.Equal(t, "critical", UrgencyCritical.String())
	assert.Equal(t, "unknown", Urgency(9).String())
}
