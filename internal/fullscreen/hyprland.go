package fullscreen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	hyprSignatureEnv = "HYPRLAND_INSTANCE_SIGNATURE"
	hyprRequestSock  = ".socket.sock"
	hyprEventSock    = ".socket2.sock"
)

// HyprlandSource follows Hyprland's IPC sockets.
type HyprlandSource struct {
	requestPath string
	eventPath   string
	logger      *slog.Logger
	dialer      net.Dialer
}

// HyprlandSocketDir returns the directory holding the sockets of the running
// Hyprland instance.
func HyprlandSocketDir() (string, error) {
	sig := os.Getenv(hyprSignatureEnv)
	if sig == "" {
		return "", fmt.Errorf("%s is not set", hyprSignatureEnv)
	}

	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		dir := filepath.Join(runtime, "hypr", sig)
		if _, err := os.Stat(filepath.Join(dir, hyprEventSock)); err == nil {
			return dir, nil
		}
	}

	// Hyprland releases before 0.40 used /tmp.
	dir := filepath.Join(os.TempDir(), "hypr", sig)
	if _, err := os.Stat(filepath.Join(dir, hyprEventSock)); err != nil {
		return "", fmt.Errorf("hyprland socket not found: %w", err)
	}
	return dir, nil
}

// NewHyprlandSource locates the running Hyprland instance.
func NewHyprlandSource(logger *slog.Logger) (*HyprlandSource, error) {
	dir, err := HyprlandSocketDir()
	if err != nil {
		return nil, err
	}
	return NewHyprlandSourceAt(dir, logger), nil
}

// NewHyprlandSourceAt creates a source using the sockets in dir.
func NewHyprlandSourceAt(dir string, logger *slog.Logger) *HyprlandSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HyprlandSource{
		requestPath: filepath.Join(dir, hyprRequestSock),
		eventPath:   filepath.Join(dir, hyprEventSock),
		logger:      logger,
		dialer:      net.Dialer{Timeout: 2 * time.Second},
	}
}

// Name implements Source.
func (h *HyprlandSource) Name() string { return KindHyprland }

// Run implements Source.
func (h *HyprlandSource) Run(ctx context.Context, sink Sink) error {
	conn, err := h.dialer.DialContext(ctx, "unix", h.eventPath)
	if err != nil {
		return fmt.Errorf("connect hyprland events: %w", err)
	}
	defer conn.Close()

	// Snapshot after subscribing so no transition falls between the two.
	clients, err := h.clients(ctx)
	if err != nil {
		return err
	}
	tracker := newHyprTracker(clients)
	h.logger.Debug("hyprland snapshot", "clients", len(clients), "fullscreen", len(tracker.fullscreen))
	sink(Event{Kind: EventSync, Apps: tracker.fullscreenApps()})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	return tracker.consume(ctx, conn, sink)
}

// hyprClient is the subset of `j/clients` used here.
type hyprClient struct {
	Address        string          `json:"address"`
	Class          string          `json:"class"`
	Fullscreen     json.RawMessage `json:"fullscreen"`
	FocusHistoryID int             `json:"focusHistoryID"`
}

// isFullscreen accepts both the boolean form of older releases and the
// numeric fullscreen mode of newer ones.
func (c hyprClient) isFullscreen() bool {
	raw := strings.TrimSpace(string(c.Fullscreen))
	switch raw {
	case "", "false", "0", "null":
		return false
	default:
		return true
	}
}

func (h *HyprlandSource) clients(ctx context.Context) ([]hyprClient, error) {
	conn, err := h.dialer.DialContext(ctx, "unix", h.requestPath)
	if err != nil {
		return nil, fmt.Errorf("connect hyprland requests: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	if _, err := conn.Write([]byte("j/clients")); err != nil {
		return nil, fmt.Errorf("query hyprland clients: %w", err)
	}
	body, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read hyprland clients: %w", err)
	}
	return parseHyprClients(body)
}

func parseHyprClients(body []byte) ([]hyprClient, error) {
	var clients []hyprClient
	if err := json.Unmarshal(body, &clients); err != nil {
		return nil, fmt.Errorf("decode hyprland clients: %w", err)
	}
	return clients, nil
}

// normalizeAddr strips the 0x prefix so addresses from requests and events
// compare equal.
func normalizeAddr(addr string) string {
	return strings.TrimPrefix(strings.TrimSpace(addr), "0x")
}

// hyprTracker turns the event stream into full-screen events. Hyprland's
// fullscreen event does not name a window, so the tracker remembers the
// active one.
type hyprTracker struct {
	active     string
	fullscreen map[string]struct{}
}

func newHyprTracker(clients []hyprClient) *hyprTracker {
	t := &hyprTracker{fullscreen: make(map[string]struct{})}
	for _, c := range clients {
		addr := normalizeAddr(c.Address)
		if c.isFullscreen() {
			t.fullscreen[addr] = struct{}{}
		}
		if c.FocusHistoryID == 0 {
			t.active = addr
		}
	}
	return t
}

func (t *hyprTracker) fullscreenApps() []string {
	apps := make([]string, 0, len(t.fullscreen))
	for addr := range t.fullscreen {
		apps = append(apps, addr)
	}
	return apps
}

// apply parses one event line. It reports false when the line carries no
// full-screen meaning.
func (t *hyprTracker) apply(line string) (Event, bool) {
	name, data, ok := strings.Cut(strings.TrimSpace(line), ">>")
	if !ok {
		return Event{}, false
	}

	switch name {
	case "activewindowv2":
		t.active = normalizeAddr(data)
		return Event{}, false
	case "fullscreen":
		if t.active == "" {
			return Event{}, false
		}
		if data == "1" {
			t.fullscreen[t.active] = struct{}{}
			return Event{Kind: EventEnter, App: t.active}, true
		}
		delete(t.fullscreen, t.active)
		return Event{Kind: EventExit, App: t.active}, true
	case "openwindow":
		addr, _, _ := strings.Cut(data, ",")
		addr = normalizeAddr(addr)
		if addr == "" {
			return Event{}, false
		}
		return Event{Kind: EventLaunch, App: addr}, true
	case "closewindow":
		addr := normalizeAddr(data)
		if addr == "" {
			return Event{}, false
		}
		delete(t.fullscreen, addr)
		if t.active == addr {
			t.active = ""
		}
		return Event{Kind: EventTerminate, App: addr}, true
	default:
		return Event{}, false
	}
}

func (t *hyprTracker) consume(ctx context.Context, r io.Reader, sink Sink) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ev, ok := t.apply(scanner.Text()); ok {
			sink(ev)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read hyprland events: %w", err)
	}
	return io.ErrUnexpectedEOF
}
