package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Show the clock if hidden, hide it if shown",
	Long: `Toggle the clock overlay. Suited to a key binding or a waybar on-click:

  "custom/fsclock": {
    "exec": "fsclock status -o waybar --watch",
    "return-type": "json",
    "on-click": "fsclock toggle"
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, offline := connect()
		defer ctl.Close()

		visible, err := ctl.Toggle()
		if err != nil {
			return fmt.Errorf("toggle failed: %w", err)
		}
		printVisibility(cmd, visible, offline)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the clock",
	Long:  `Show the clock overlay. It stays hidden while an application is full-screen.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, offline := connect()
		defer ctl.Close()

		if err := ctl.Show(); err != nil {
			return fmt.Errorf("show failed: %w", err)
		}
		printVisibility(cmd, true, offline)
		return nil
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the clock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, offline := connect()
		defer ctl.Close()

		if err := ctl.Hide(); err != nil {
			return fmt.Errorf("hide failed: %w", err)
		}
		printVisibility(cmd, false, offline)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(hideCmd)
}

func printVisibility(cmd *cobra.Command, visible, offline bool) {
	state := "hidden"
	if visible {
		state = "shown"
	}
	if offline {
		fmt.Fprintf(cmd.OutOrStdout(), "Clock: %s (fsclockd not running, saved for next start)\n", state)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Clock: %s\n", state)
}
