// Package fullscreen tracks whether any application on the desktop is
// currently presented full-screen and broadcasts transitions of that
// aggregate state to subscribers.
//
// A single process-wide Signal (see Shared) is fed by a Source that talks to
// the compositor or X server. Sources run on their own goroutines and hand
// events to the Signal through a dispatcher so that membership updates and
// subscriber callbacks always run on the UI thread.
package fullscreen
