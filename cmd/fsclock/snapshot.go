package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotOpts struct {
	size int
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [path]",
	Short: "Save the clock as a PNG",
	Long: `Render the clock as it currently looks and save it as a PNG.

Without a path, or with a directory, a uniquely named file is written to
the snapshot directory (default ~/.local/share/fsclock/snapshots). The path
of the written file is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		size := snapshotOpts.size
		if !cmd.Flags().Changed("size") {
			size = cfg.Snapshot.Size
		}
		if size < 0 {
			return fmt.Errorf("size must not be negative")
		}

		ctl, _ := connect()
		defer ctl.Close()

		written, err := ctl.Snapshot(path, size)
		if err != nil {
			return fmt.Errorf("snapshot failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().IntVarP(&snapshotOpts.size, "size", "s", 0,
		"Longest side in pixels (0 = native display size)")
}
