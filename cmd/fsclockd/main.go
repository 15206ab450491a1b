// Package main is the entry point for the fsclockd clock overlay daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/fsclock/internal/config"
	"github.com/jmylchreest/fsclock/internal/daemon"
	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/display"
	"github.com/jmylchreest/fsclock/internal/display/layershell"
	"github.com/jmylchreest/fsclock/internal/fullscreen"
	"github.com/jmylchreest/fsclock/internal/store"
	"github.com/jmylchreest/fsclock/internal/theme"
)

const appID = "io.github.jmylchreest.fsclockd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/fsclock/fsclockd.toml)")
	flag.Parse()

	if *showVersion {
		fmt.Println("fsclockd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DaemonConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
	}

	os.Exit(run(path, logger))
}

// run starts the GTK application and returns its exit status.
func run(configPath string, logger *slog.Logger) int {
	logger.Info("starting fsclockd", "version", version)

	cfg, err := config.LoadDaemonConfigFrom(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		return 1
	}

	app := adw.NewApplication(appID, 0)

	// Shared state between the GTK main loop and signal handlers
	var (
		controlServer  *dbus.ControlServer
		manager        *display.Manager
		monitorWatcher *layershell.MonitorWatcher
		themeLoader    *theme.Loader
		shell          *daemon.Shell
		configWatcher  *daemon.ConfigWatcher
		stateWatcher   *daemon.StateWatcher
		notifier       *daemon.InternalNotifier
		running        atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
		case <-ctx.Done():
			return
		}
		cancel()
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		desktop := dbus.NewDesktopNotifier(nil)
		notifier = daemon.NewInternalNotifier(desktop.Notify, logger)
		notifier.SetEnabled(cfg.Behavior.NotifyErrors)

		// Theme first: the factory routes background alpha through it.
		themeLoader = theme.NewLoader(logger)
		themeLoader.SetErrorCallback(func(err error) {
			notifier.NotifyThemeError(err)
		})
		if err := themeLoader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme, using default", "error", err)
		}
		themeLoader.Apply(nil)
		themeLoader.StartHotReload(ctx)

		factory, err := layershell.NewFactory(&app.Application, themeLoader, cfg.Display.Layer, logger)
		if err != nil {
			logger.Error("failed to create overlay factory", "error", err)
			notifier.NotifyOverlayError(err)
			app.Quit()
			return
		}

		monitorWatcher, err = layershell.NewMonitorWatcher(monitorFilter(cfg), logger)
		if err != nil {
			logger.Error("failed to watch monitors", "error", err)
			app.Quit()
			return
		}

		fs := fullscreen.Shared()
		fs.SetLogger(logger)

		style, err := daemon.StyleFromConfig(cfg)
		if err != nil {
			logger.Warn("failed to load dial, drawing plain face", "error", err)
		}

		manager = display.NewManager(display.Options{
			Factory:         factory,
			Scheduler:       layershell.Scheduler{},
			Signal:          fs,
			RepaintInterval: cfg.Clock.RepaintInterval.Duration(),
			Style:           style,
			Logger:          logger,
		})

		settings := store.NewSettingsFile(config.StatePath())
		shell = daemon.NewShell(daemon.ShellOptions{
			Manager:      manager,
			Signal:       fs,
			Settings:     settings,
			Invoke:       layershell.Invoke,
			Logger:       logger,
			Defaults:     cfg.Clock,
			SnapshotDir:  config.DefaultConfig().SnapshotDir(),
			SnapshotSize: config.DefaultSnapshotSize,
		})

		monitorWatcher.SetChangeCallback(func(monitors []display.Monitor) {
			manager.SetScreens(monitors)
		})
		monitorWatcher.Start()
		shell.Start(monitorWatcher.Monitors(), cfg.Behavior.RememberVisible, cfg.Behavior.StartVisible)

		// Control service. A second instance exits here.
		controlServer = dbus.NewControlServer(shell, logger)
		if err := controlServer.Start(); err != nil {
			if errors.Is(err, dbus.ErrAlreadyRunning) {
				logger.Error("another fsclockd owns the bus name", "name", dbus.BusName)
				app.Quit()
				return
			}
			// Without a bus the clock still runs; fsclock falls back to
			// editing state.json, which the state watcher picks up.
			logger.Warn("failed to start D-Bus control service", "error", err)
			controlServer = nil
		} else {
			shell.SetStateListener(func(visible, effective bool) {
				if err := controlServer.EmitStateChanged(visible, effective); err != nil {
					logger.Debug("failed to emit StateChanged", "error", err)
				}
			})
		}

		startFullscreenSource(ctx, cfg, fs, notifier, logger)

		stateWatcher, err = daemon.NewStateWatcher(settings, logger)
		if err != nil {
			logger.Warn("failed to create state watcher", "error", err)
		} else {
			stateWatcher.SetChangeCallback(shell.ApplySettings)
			if err := stateWatcher.Start(); err != nil {
				logger.Warn("failed to start state watcher", "error", err)
			}
		}

		configWatcher, err = daemon.NewConfigWatcher(configPath, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
				newStyle, err := daemon.StyleFromConfig(newConfig)
				if err != nil {
					logger.Warn("failed to load dial", "error", err)
					notifier.Notify("dial", "Dial Error", err.Error(), daemon.NotificationLevelWarning)
				}
				shell.ApplyConfig(newConfig, newStyle)

				glib.IdleAdd(func() {
					monitorWatcher.SetFilter(monitorFilter(newConfig))
					manager.SetScreens(monitorWatcher.Monitors())

					if newConfig.Theme.Name != cfg.Theme.Name {
						if err := themeLoader.LoadTheme(newConfig.Theme.Name); err != nil {
							notifier.NotifyThemeError(err)
						}
						themeLoader.StartHotReload(ctx)
					}
					if newConfig.Fullscreen.Source != cfg.Fullscreen.Source {
						logger.Info("fullscreen source change takes effect after restart",
							"source", newConfig.Fullscreen.Source)
					}
					if newConfig.Display.Layer != cfg.Display.Layer {
						logger.Info("layer change takes effect after restart", "layer", newConfig.Display.Layer)
					}

					cfg = newConfig
					notifier.SetEnabled(newConfig.Behavior.NotifyErrors)
					notifier.NotifyConfigReloaded()
				})
			})
			configWatcher.SetErrorCallback(func(err error) {
				notifier.NotifyConfigError(err)
			})
			if err := configWatcher.Start(cfg); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
			}
		}

		logger.Info("fsclockd ready",
			"dbus_interface", dbus.Interface,
			"displays", len(manager.Overlays()),
			"theme", themeLoader.CurrentTheme())

		// GTK quits when the last window closes; with every display
		// excluded there would be none.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		cancel()
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if stateWatcher != nil {
			stateWatcher.Stop()
		}
		if themeLoader != nil {
			themeLoader.StopHotReload()
		}
		if controlServer != nil {
			_ = controlServer.Stop()
		}
		if monitorWatcher != nil {
			monitorWatcher.Stop()
		}
		if manager != nil {
			manager.Close()
		}
		running.Store(false)
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
	}
	return status
}

func monitorFilter(cfg *config.DaemonConfig) layershell.MonitorFilter {
	return layershell.MonitorFilter{
		SkipPrimary: cfg.Display.SkipPrimary,
		Exclude:     cfg.Display.Exclude,
	}
}

// startFullscreenSource feeds the configured compositor source into the
// shared signal until ctx is cancelled. Without a source the clock relies
// on `fsclock fullscreen enter|exit`.
func startFullscreenSource(ctx context.Context, cfg *config.DaemonConfig, sig *fullscreen.Signal, notifier *daemon.InternalNotifier, logger *slog.Logger) {
	src, err := fullscreen.Detect(cfg.Fullscreen.Source, logger)
	if err != nil {
		if errors.Is(err, fullscreen.ErrNoSource) {
			logger.Info("no fullscreen source, relying on external reports", "source", cfg.Fullscreen.Source)
			return
		}
		logger.Warn("failed to set up fullscreen source", "error", err)
		notifier.NotifySourceLost(cfg.Fullscreen.Source, err)
		return
	}

	logger.Info("watching fullscreen state", "source", src.Name())
	go fullscreen.Watch(ctx, &reportingSource{Source: src, notifier: notifier}, sig.Feed(layershell.Post), fullscreen.WatchOptions{
		ReconnectDelay: cfg.Fullscreen.ReconnectDelay.Duration(),
		Logger:         logger,
	})
}

// reportingSource tells the user when the compositor connection drops.
type reportingSource struct {
	fullscreen.Source
	notifier *daemon.InternalNotifier
}

func (r *reportingSource) Run(ctx context.Context, sink fullscreen.Sink) error {
	err := r.Source.Run(ctx, sink)
	if err != nil && ctx.Err() == nil {
		r.notifier.NotifySourceLost(r.Name(), err)
	}
	return err
}
