package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/fsclock/internal/dbus"
)

type recordingSender struct {
	sent   []*dbus.Notification
	nextID uint32
	err    error
}

func (r *recordingSender) send(n *dbus.Notification) (uint32, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.sent = append(r.sent, n)
	r.nextID++
	return r.nextID, nil
}

func newTestNotifier(r *recordingSender) (*InternalNotifier, *time.Time) {
	n := NewInternalNotifier(r.send, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	return n, &now
}

func TestInternalNotifier_Levels(t *testing.T) {
	r := &recordingSender{}
	n, _ := newTestNotifier(r)

	n.NotifyConfigReloaded()
	n.NotifyThemeError(errors.New("bad css"))
	n.NotifyOverlayError(errors.New("no layer shell"))

	require.Len(t, r.sent, 3)
	assert.Equal(t, SourceDaemon, r.sent[0].AppName)
	assert.Equal(t, dbus.UrgencyLow, r.sent[0].Urgency)
	assert.True(t, r.sent[0].Transient)
	assert.Equal(t, "fsclock.config", r.sent[0].Category)

	assert.Equal(t, dbus.UrgencyNormal, r.sent[1].Urgency)
	assert.Contains(t, r.sent[1].Body, "bad css")

	assert.Equal(t, dbus.UrgencyCritical, r.sent[2].Urgency)
	assert.False(t, r.sent[2].Transient)
	assert.Equal(t, int32(0), r.sent[2].ExpireTimeout)
}

func TestInternalNotifier_RateLimitsPerKey(t *testing.T) {
	r := &recordingSender{}
	n, now := newTestNotifier(r)

	n.NotifyConfigError(errors.New("one"))
	n.NotifyConfigError(errors.New("two"))
	n.NotifyThemeError(errors.New("other key"))
	assert.Len(t, r.sent, 2)

	*now = now.Add(DefaultNotifyInterval)
	n.NotifyConfigReloaded()
	require.Len(t, r.sent, 3)
	// Same key replaces the earlier bubble.
	assert.Equal(t, uint32(1), r.sent[2].ReplacesID)
}

func TestInternalNotifier_Disabled(t *testing.T) {
	r := &recordingSender{}
	n, _ := newTestNotifier(r)
	n.SetEnabled(false)

	n.NotifySourceLost("hyprland", errors.New("socket closed"))
	assert.Empty(t, r.sent)
}

func TestInternalNotifier_SendFailure(t *testing.T) {
	r := &recordingSender{err: errors.New("no notification daemon")}
	n, now := newTestNotifier(r)

	assert.NotPanics(t, func() { n.NotifyConfigReloaded() })

	r.err = nil
	*now = now.Add(time.Minute)
	n.NotifyConfigReloaded()
	require.Len(t, r.sent, 1)
	assert.Zero(t, r.sent[0].ReplacesID)
}

func TestInternalNotifier_NilSender(t *testing.T) {
	n := NewInternalNotifier(nil, nil)
	assert.NotPanics(t, func() { n.NotifyConfigReloaded() })
}
