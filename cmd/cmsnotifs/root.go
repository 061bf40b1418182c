// Package main provides the CLI entrypoint for cmsnotifs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cmsnotifs/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	settings   *config.Settings
	globalOpts struct {
		verbose        bool
		settingsFile   string
		connectionFile string
	}
	rootOpts struct {
		settings     bool
		silentErrors bool
		terminal     bool
	}
	logger  *slog.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "cmsnotifs",
	Short: "Desktop notifier for Moodle CMS notifications",
	Long: `cmsnotifs polls a Moodle site for unread popup notifications and shows
them in a small page opened in your browser (or in the terminal with
--terminal). From there you can open a notification, mark everything read,
or change the connection settings.

Running cmsnotifs without a subcommand starts the poll loop. The first run
opens the settings view so you can enter your site URL and web service token.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),

	// Launchers pass through whatever they were given.
	Args:               cobra.ArbitraryArgs,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	SilenceUsage:       true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		settings, err = config.LoadSettings(globalOpts.settingsFile)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	},
	RunE: runNotifier,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.settingsFile, "settings-file", "",
		"Path to settings file (default: ~/.config/cms_notifs/settings.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.connectionFile, "connection-file", "",
		"Path to connection file (default: ~/.config/cms_notifs.json)")

	rootCmd.Flags().BoolVar(&rootOpts.settings, "settings", false,
		"Open the settings view and exit when it is closed")
	rootCmd.Flags().BoolVar(&rootOpts.silentErrors, "silent-errors", false,
		"Log fetch errors without showing the error view")
	rootCmd.Flags().BoolVar(&rootOpts.terminal, "terminal", false,
		"Show views in the terminal instead of the browser")
}

// setupLogger configures the global slog logger. Output goes to stderr and,
// when it can be opened, the log file.
func setupLogger() {
	level := slog.LevelInfo
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	var fileErr error
	if logFile, fileErr = openLogFile(); fileErr == nil {
		out = io.MultiWriter(os.Stderr, logFile)
	}

	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if fileErr != nil {
		logger.Warn("logging to stderr only", "error", fileErr)
	}
}

func openLogFile() (*os.File, error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func runNotifier(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(appOptions{
		silentErrors: rootOpts.silentErrors,
		terminal:     rootOpts.terminal,
		watch:        !rootOpts.settings,
		alerts:       !rootOpts.settings,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if rootOpts.settings {
		logger.Info("opening settings")
		_, err = a.notifier.Setup(ctx)
	} else {
		logger.Info("starting cmsnotifs", "version", version, "interval", settings.Poll.Interval.Duration())
		err = a.notifier.Run(ctx)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}
