package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/fsclock/internal/adapter/output"
	"github.com/jmylchreest/fsclock/internal/dbus"
)

var statusOpts struct {
	format   string
	template string
	watch    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the clock state",
	Long: `Print the clock state as plain text, JSON, YAML or a waybar custom
module object.

With --watch, a new line is printed every time fsclockd reports a change,
so waybar can run the command persistently instead of polling:

  "custom/fsclock": {
    "exec": "fsclock status -o waybar --watch",
    "return-type": "json",
    "on-click": "fsclock toggle"
  }

Templates (plain and waybar) may use .State, .Visible, .Effective,
.Fullscreen, .FullscreenApps, .BackgroundAlpha, .FaceAlpha, .HandsAlpha,
.Displays, .ChangedAt and the functions percent, reltime, join, upper and
truncate.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "output", "o", "",
		"Output format: plain, json, yaml, waybar (default from config)")
	statusCmd.Flags().StringVarP(&statusOpts.template, "template", "t", "",
		"Template name from [templates.custom] or an inline template for plain output")
	statusCmd.Flags().BoolVarP(&statusOpts.watch, "watch", "w", false,
		"Keep running and print the state after every change")
}

func runStatus(cmd *cobra.Command, args []string) error {
	name := statusOpts.format
	if name == "" {
		name = cfg.Status.Format
	}
	format, err := output.ParseFormatType(name)
	if err != nil {
		return err
	}

	opts := output.FormatterOptions{
		Template:      cfg.GetTemplate("plain"),
		WaybarText:    cfg.GetTemplate("waybar_text"),
		WaybarTooltip: cfg.GetTemplate("waybar_tooltip"),
	}
	if statusOpts.template != "" {
		if tmpl := cfg.GetTemplate(statusOpts.template); tmpl != "" {
			opts.Template = tmpl
		} else {
			opts.Template = statusOpts.template
		}
	}

	formatter, err := output.NewFormatter(format, opts)
	if err != nil {
		return err
	}

	ctl, _ := connect()
	defer ctl.Close()

	out := cmd.OutOrStdout()
	if err := printStatus(out, formatter, ctl); err != nil {
		return err
	}
	if !statusOpts.watch {
		return nil
	}

	client, ok := ctl.(*dbus.Client)
	if !ok {
		return dbus.ErrNotRunning
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = client.WatchState(ctx, func(visible, effective bool) {
		logger.Debug("state changed", "visible", visible, "effective", effective)
		if err := printStatus(out, formatter, ctl); err != nil {
			logger.Warn("failed to print status", "error", err)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printStatus(w io.Writer, f output.Formatter, ctl control) error {
	if sc, ok := ctl.(*settingsControl); ok {
		s, err := sc.file.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("failed to read saved settings: %w", err)
		}
		return f.Format(w, output.FromSettings(s))
	}

	st, err := ctl.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return f.Format(w, output.FromStatus(st))
}
