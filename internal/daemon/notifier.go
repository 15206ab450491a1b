package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/fsclock/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	NotificationLevelInfo NotificationLevel = iota
	NotificationLevelWarning
	NotificationLevelError
)

// DefaultNotifyInterval is the minimum gap between notifications sharing
// a key.
const DefaultNotifyInterval = 5 * time.Second

// NotifyFunc delivers a notification, e.g. dbus.DesktopNotifier.Notify.
type NotifyFunc func(n *dbus.Notification) (uint32, error)

// InternalNotifier posts desktop notifications about fsclockd's own
// problems. Notifications with the same key are rate limited.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	send   NotifyFunc
	now    func() time.Time

	lastNotifyTime map[string]time.Time
	replaces       map[string]uint32 // key -> id to replace
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates an InternalNotifier that delivers through send.
func NewInternalNotifier(send NotifyFunc, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		send:           send,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		replaces:       make(map[string]uint32),
		minInterval:    DefaultNotifyInterval,
		enabled:        true,
	}
}

// SetEnabled enables or disables notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications per key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify posts a notification unless disabled or rate limited. A repeat of
// the same key replaces the previous bubble.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	if !n.enabled || n.send == nil {
		n.mu.Unlock()
		return
	}
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now
	replaces := n.replaces[key]
	send := n.send
	n.mu.Unlock()

	notification := &dbus.Notification{
		AppName:       SourceDaemon,
		ReplacesID:    replaces,
		Summary:       summary,
		Body:          body,
		Category:      "fsclock." + key,
		Transient:     level != NotificationLevelError,
		ExpireTimeout: 5000,
	}
	switch level {
	case NotificationLevelInfo:
		notification.Urgency = dbus.UrgencyLow
		notification.AppIcon = "dialog-information"
	case NotificationLevelWarning:
		notification.Urgency = dbus.UrgencyNormal
		notification.AppIcon = "dialog-warning"
	default:
		notification.Urgency = dbus.UrgencyCritical
		notification.AppIcon = "dialog-error"
		notification.ExpireTimeout = 0
	}

	id, err := send(notification)
	if err != nil {
		n.logger.Debug("internal notification failed", "key", key, "error", err)
		return
	}

	n.mu.Lock()
	n.replaces[key] = id
	n.mu.Unlock()
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config", "Configuration Reloaded",
		"fsclockd configuration has been reloaded.", NotificationLevelInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config", "Configuration Error",
		"Keeping the previous configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyThemeError reports a theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify("theme", "Theme Error",
		"Failed to load theme: "+err.Error(), NotificationLevelWarning)
}

// NotifyOverlayError reports an overlay window that could not be created.
func (n *InternalNotifier) NotifyOverlayError(err error) {
	n.Notify("overlay", "Clock Overlay Unavailable", err.Error(), NotificationLevelError)
}

// NotifySourceLost reports a full-screen source that stopped. The clock keeps
// its last known suppression state until the source reconnects.
func (n *InternalNotifier) NotifySourceLost(source string, err error) {
	n.Notify("source", "Full-screen Detection Interrupted",
		source+": "+err.Error(), NotificationLevelWarning)
}
