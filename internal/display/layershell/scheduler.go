package layershell

import (
	"time"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
)

// Scheduler runs repaint timers on the GLib main loop.
type Scheduler struct{}

// Every implements display.Scheduler.
func (Scheduler) Every(d time.Duration, fn func()) func() {
	ms := max(uint(d.Milliseconds()), 1)
	handle := coreglib.TimeoutAdd(ms, func() bool {
		fn()
		return true
	})
	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		coreglib.SourceRemove(handle)
	}
}

// Invoke runs fn on the GLib main loop and waits for it to return.
// It must not be called from the main loop itself.
func Invoke(fn func()) {
	done := make(chan struct{})
	coreglib.IdleAdd(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Post runs fn on the GLib main loop without waiting.
func Post(fn func()) {
	coreglib.IdleAdd(fn)
}
