// Package daemon wires the pieces of fsclockd together.
//
// Shell is the application surface the D-Bus service, the settings file
// and the preferences TUI talk to. It forwards every call onto the UI thread
// through an Invoker and persists user changes to state.json.
//
// ConfigWatcher and StateWatcher follow fsclockd.toml and state.json so that
// edits made while the daemon runs take effect without a restart, and
// InternalNotifier reports the daemon's own problems as desktop
// notifications.
package daemon
