// Package dbus exposes fsclockd on the session bus as
// io.github.jmylchreest.FsClock1, provides the matching client used by the
// fsclock CLI, and sends desktop notifications through
// org.freedesktop.Notifications.
package dbus
