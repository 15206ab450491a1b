package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/fsclock/internal/dbus"
)

var fullscreenCmd = &cobra.Command{
	Use:   "fullscreen",
	Short: "Report full-screen transitions to fsclockd",
	Long: `Report full-screen transitions for compositors fsclockd cannot watch
itself. While any reported application is full-screen the clock is
suppressed on every display.

  fsclock fullscreen enter mpv
  fsclock fullscreen exit mpv`,
}

var fullscreenEnterCmd = &cobra.Command{
	Use:   "enter <app>",
	Short: "Report that app entered full-screen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyFullscreen(args[0], true)
	},
}

var fullscreenExitCmd = &cobra.Command{
	Use:   "exit <app>",
	Short: "Report that app left full-screen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyFullscreen(args[0], false)
	},
}

func init() {
	fullscreenCmd.AddCommand(fullscreenEnterCmd)
	fullscreenCmd.AddCommand(fullscreenExitCmd)
	rootCmd.AddCommand(fullscreenCmd)
}

func notifyFullscreen(app string, fullscreen bool) error {
	ctl, _ := connect()
	defer ctl.Close()

	if err := ctl.NotifyFullscreen(app, fullscreen); err != nil {
		if errors.Is(err, dbus.ErrNotRunning) {
			return err
		}
		return fmt.Errorf("failed to report full-screen state: %w", err)
	}
	return nil
}
