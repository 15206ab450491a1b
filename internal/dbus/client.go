package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrNotRunning is returned by the client when fsclockd does not own its
// bus name.
var ErrNotRunning = errors.New("fsclockd is not running")

// Client calls a running fsclockd over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens the session bus and checks that fsclockd is present.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	c := NewClient(conn)
	running, err := c.Running()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !running {
		conn.Close()
		return nil, ErrNotRunning
	}
	return c, nil
}

// NewClient wraps an existing connection without checking for fsclockd.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether fsclockd owns its bus name.
func (c *Client) Running() (bool, error) {
	var has bool
	err := c.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&has)
	if err != nil {
		return false, fmt.Errorf("failed to query bus name: %w", err)
	}
	return has, nil
}

func (c *Client) call(method string, args ...any) *dbus.Call {
	return c.obj.Call(Interface+"."+method, 0, args...)
}

// Toggle flips visibility and returns the new value.
func (c *Client) Toggle() (bool, error) {
	var visible bool
	err := c.call("Toggle").Store(&visible)
	return visible, err
}

// Show shows the clock.
func (c *Client) Show() error {
	return c.call("Show").Err
}

// Hide hides the clock.
func (c *Client) Hide() error {
	return c.call("Hide").Err
}

// SetAlpha sets a layer opacity and returns the applied value.
func (c *Client) SetAlpha(layer string, value float64) (float64, error) {
	var applied float64
	err := c.call("SetAlpha", layer, value).Store(&applied)
	return applied, err
}

// RestoreDefaults resets all opacities.
func (c *Client) RestoreDefaults() error {
	return c.call("RestoreDefaults").Err
}

// Status returns the overlay state.
func (c *Client) Status() (Status, error) {
	var st Status
	err := c.call("GetStatus").Store(
		&st.Visible, &st.Effective,
		&st.BackgroundAlpha, &st.FaceAlpha, &st.HandsAlpha,
		&st.Displays, &st.FullscreenApps, &st.ChangedAt,
	)
	return st, err
}

// Snapshot asks fsclockd to write a PNG and returns the written path.
func (c *Client) Snapshot(path string, size int) (string, error) {
	var written string
	err := c.call("Snapshot", path, int32(size)).Store(&written)
	return written, err
}

// NotifyFullscreen reports a full-screen transition for app.
func (c *Client) NotifyFullscreen(app string, fullscreen bool) error {
	return c.call("NotifyFullscreen", app, fullscreen).Err
}

// WatchState calls fn for every StateChanged signal until ctx is done.
func (c *Client) WatchState(ctx context.Context, fn func(visible, effective bool)) error {
	opts := stateChangedMatch()
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}
	defer c.conn.RemoveMatchSignal(opts...)

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return errors.New("bus connection closed")
			}
			if visible, effective, ok := parseStateChanged(sig); ok {
				fn(visible, effective)
			}
		}
	}
}
