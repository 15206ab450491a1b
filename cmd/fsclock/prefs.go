package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/fsclock/internal/dbus"
	"github.com/jmylchreest/fsclock/internal/tui"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Open the preferences screen",
	Long: `Open the interactive preferences screen.

Key bindings:
  j/k, ↑/↓    Select a row
  h/l, ←/→    Change the selected opacity
  0 / 1       Fully transparent / fully opaque
  space       Show or hide the clock
  r           Restore the configured defaults
  s           Save a snapshot
  ?           Show all keys
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runPrefs,
}

func init() {
	rootCmd.AddCommand(prefsCmd)
}

func runPrefs(cmd *cobra.Command, args []string) error {
	ctl, offline := connect()
	defer ctl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := tui.Options{
		Step:     cfg.TUI.Step,
		ShowHelp: cfg.TUI.ShowHelp,
		Offline:  offline,
	}

	if client, ok := ctl.(*dbus.Client); ok {
		changes := make(chan struct{}, 1)
		opts.Changes = changes
		go func() {
			defer close(changes)
			err := client.WatchState(ctx, func(bool, bool) {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Debug("stopped watching state changes", "error", err)
			}
		}()
	}

	p := tea.NewProgram(tui.New(ctl, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
