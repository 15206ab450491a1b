package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/fsclock/internal/display"
)

var alphaOpts struct {
	by string
}

var alphaCmd = &cobra.Command{
	Use:   "alpha [background|face|hands] [value]",
	Short: "Show or set layer opacity",
	Long: `Show or set the opacity of one of the clock's three layers:

  background  the tint behind the clock, covering the whole display
  face        the dial and hour ticks
  hands       the hour, minute and second hands

Values are 0-1 or a percentage. A value with a leading + or - is a change
to the current value, not an absolute one. A bare negative value is read
as a flag, so put -- before the arguments or use --by for relative steps:

  fsclock alpha face 0.6
  fsclock alpha background 35%
  fsclock alpha hands +10%
  fsclock alpha face --by=-0.1
  fsclock alpha -- face -0.1

Without arguments the current opacities are printed.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runAlpha,
}

var alphaRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the configured default opacities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, _ := connect()
		defer ctl.Close()

		if err := ctl.RestoreDefaults(); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		return printAlphas(cmd, ctl)
	},
}

func init() {
	alphaCmd.Flags().StringVar(&alphaOpts.by, "by", "",
		"Change the layer's opacity by this step (e.g. -0.1, +5%)")
	alphaCmd.AddCommand(alphaRestoreCmd)
	rootCmd.AddCommand(alphaCmd)
}

func runAlpha(cmd *cobra.Command, args []string) error {
	ctl, _ := connect()
	defer ctl.Close()

	if len(args) == 0 {
		if alphaOpts.by != "" {
			return errors.New("--by needs a layer")
		}
		return printAlphas(cmd, ctl)
	}

	layer, err := display.ParseLayer(args[0])
	if err != nil {
		return err
	}

	st, err := ctl.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	current := alphaOf(st.BackgroundAlpha, st.FaceAlpha, st.HandsAlpha, layer)

	if len(args) == 1 && alphaOpts.by == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", layer, formatAlpha(current))
		return nil
	}

	value, err := alphaTarget(args[1:], alphaOpts.by, current)
	if err != nil {
		return err
	}
	applied, err := ctl.SetAlpha(string(layer), value)
	if err != nil {
		return fmt.Errorf("failed to set %s opacity: %w", layer, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", layer, formatAlpha(applied))
	return nil
}

// alphaTarget resolves the new opacity from either the positional value or
// the --by step. A step without a sign is an increase.
func alphaTarget(values []string, by string, current float64) (float64, error) {
	if by == "" {
		return parseAlpha(values[0], current)
	}
	if len(values) > 0 {
		return 0, errors.New("give either a value or --by, not both")
	}
	by = strings.TrimSpace(by)
	if by != "" && by[0] != '+' && by[0] != '-' {
		by = "+" + by
	}
	return parseAlpha(by, current)
}

func printAlphas(cmd *cobra.Command, ctl control) error {
	st, err := ctl.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	for _, l := range display.Layers() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", l+":", formatAlpha(alphaOf(st.BackgroundAlpha, st.FaceAlpha, st.HandsAlpha, l)))
	}
	return nil
}

func alphaOf(background, face, hands float64, l display.Layer) float64 {
	switch l {
	case display.LayerBackground:
		return background
	case display.LayerFace:
		return face
	default:
		return hands
	}
}

func formatAlpha(v float64) string {
	return fmt.Sprintf("%.2f (%.0f%%)", v, v*100)
}
