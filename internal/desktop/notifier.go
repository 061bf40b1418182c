// Package desktop raises desktop notification bubbles and plays a sound for
// newly arrived CMS notifications.
package desktop

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gen2brain/beeep"
	"github.com/godbus/dbus/v5"
)

const (
	// AppName is sent as the notification's application name.
	AppName = "cmsnotifs"

	dbusInterface = "org.freedesktop.Notifications"
	dbusPath      = "/org/freedesktop/Notifications"
	dbusBusName   = "org.freedesktop.Notifications"
)

// Alert is one desktop notification.
type Alert struct {
	// Key identifies the alert for rate limiting.
	Key     string
	Summary string
	Body    string
	Icon    string
}

// Notifier delivers alerts to the desktop.
type Notifier interface {
	Notify(a Alert) error
}

// DBusNotifier sends alerts to the session's notification daemon through
// org.freedesktop.Notifications.Notify.
type DBusNotifier struct {
	obj    dbus.BusObject
	logger *slog.Logger
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier(logger *slog.Logger) (*DBusNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusNotifier{
		obj:    conn.Object(dbusBusName, dbusPath),
		logger: logger,
	}, nil
}

// Notify implements Notifier.
func (n *DBusNotifier) Notify(a Alert) error {
	var id uint32
	call := n.obj.Call(dbusInterface+".Notify", 0,
		AppName,
		uint32(0),
		iconOrDefault(a.Icon),
		a.Summary,
		a.Body,
		[]string{},
		alertHints(),
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("notify over D-Bus: %w", call.Err)
	}
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify over D-Bus: %w", err)
	}
	n.logger.Debug("desktop notification sent", "id", id, "summary", a.Summary)
	return nil
}

// alertHints are the freedesktop hints attached to every alert.
func alertHints() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(1)),
		"category":      dbus.MakeVariant("im.received"),
		"desktop-entry": dbus.MakeVariant(AppName),
	}
}

// BeeepNotifier sends alerts with the platform's native mechanism.
type BeeepNotifier struct{}

// Notify implements Notifier.
func (BeeepNotifier) Notify(a Alert) error {
	return beeep.Notify(a.Summary, a.Body, a.Icon)
}

// DefaultNotifier prefers D-Bus on Linux and falls back to beeep.
func DefaultNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if runtime.GOOS == "linux" {
		n, err := NewDBusNotifier(logger)
		if err == nil {
			return n
		}
		logger.Debug("D-Bus unavailable, using fallback notifier", "error", err)
	}
	return BeeepNotifier{}
}

func iconOrDefault(icon string) string {
	if icon == "" {
		return "mail-unread"
	}
	return icon
}
