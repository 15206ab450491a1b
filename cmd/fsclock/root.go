package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/fsclock/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		statePath  string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fsclock",
	Short: "Control the fsclock desktop clock overlay",
	Long: `fsclock controls fsclockd, a translucent analog clock drawn over every
display that hides itself while an application is full-screen.

Commands talk to fsclockd over the session bus. When fsclockd is not
running, changes are written to the saved settings and picked up the next
time it starts (or immediately, if it starts watching the file).

Running fsclock without a subcommand opens the preferences screen.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	// Default to the preferences screen when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrefs(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/fsclock/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.statePath, "state-file", "",
		"Path to saved settings (default: ~/.local/share/fsclock/state.json)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func statePath() string {
	if globalOpts.statePath != "" {
		return globalOpts.statePath
	}
	return config.StatePath()
}
