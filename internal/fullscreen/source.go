package fullscreen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Source observes the desktop and reports full-screen events.
//
// Run blocks until ctx is cancelled or the connection fails. It emits an
// EventSync snapshot first, then incremental events.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// Source kinds accepted by Detect.
const (
	KindAuto     = "auto"
	KindHyprland = "hyprland"
	KindX11      = "x11"
	KindNone     = "none"
)

// ErrNoSource is returned by Detect when no supported environment is found.
var ErrNoSource = errors.New("no fullscreen source available")

// Detect returns the Source for kind. KindAuto picks Hyprland when its
// instance signature is set, then X11 when DISPLAY is set.
func Detect(kind string, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch kind {
	case KindNone:
		return nil, ErrNoSource
	case KindHyprland:
		return NewHyprlandSource(logger)
	case KindX11:
		return NewX11Source(os.Getenv("DISPLAY"), logger), nil
	case KindAuto, "":
		if os.Getenv(hyprSignatureEnv) != "" {
			return NewHyprlandSource(logger)
		}
		if os.Getenv("DISPLAY") != "" {
			return NewX11Source(os.Getenv("DISPLAY"), logger), nil
		}
		return nil, ErrNoSource
	default:
		return nil, fmt.Errorf("unknown fullscreen source %q", kind)
	}
}

// WatchOptions configures Watch.
type WatchOptions struct {
	ReconnectDelay time.Duration
	Logger         *slog.Logger
}

// Watch runs src until ctx is cancelled, restarting it after ReconnectDelay
// whenever it fails. Every restart begins with a fresh snapshot, so missed
// events while disconnected heal on reconnect.
func Watch(ctx context.Context, src Source, sink Sink, opts WatchOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	// Stamp events so a resync only replaces what this source reported.
	stamped := func(ev Event) {
		if ev.Origin == "" {
			ev.Origin = src.Name()
		}
		sink(ev)
	}

	for {
		logger.Debug("fullscreen source starting", "source", src.Name())
		err := src.Run(ctx, stamped)
		if ctx.Err() != nil {
			logger.Debug("fullscreen source stopped", "source", src.Name())
			return
		}
		if err != nil {
			logger.Warn("fullscreen source failed", "source", src.Name(), "error", err, "retry", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
