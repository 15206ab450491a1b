// Package display manages the clock overlays, one per connected monitor.
// It decides when overlays are on screen from the user's show/hide intent
// and the full-screen state, and keeps the overlay set in step with the
// monitor list. The windowing toolkit is reached through the Window,
// WindowFactory and Scheduler interfaces; see the layershell package for
// the GTK implementation.
package display
