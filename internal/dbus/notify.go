package dbus

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

// DesktopNotifier sends notifications to whatever daemon owns
// org.freedesktop.Notifications.
type DesktopNotifier struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// NewDesktopNotifier uses conn, or the shared session bus when nil.
func NewDesktopNotifier(conn *dbus.Conn) *DesktopNotifier {
	return &DesktopNotifier{conn: conn}
}

// Notify sends n and returns the id assigned by the notification daemon.
func (d *DesktopNotifier) Notify(n *Notification) (uint32, error) {
	d.mu.Lock()
	if d.conn == nil {
		conn, err := dbus.SessionBus()
		if err != nil {
			d.mu.Unlock()
			return 0, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		d.conn = conn
	}
	conn := d.conn
	d.mu.Unlock()

	var id uint32
	err := conn.Object(notificationsName, notificationsPath).Call(
		notificationsName+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body,
		[]string{}, n.Hints(), n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}
