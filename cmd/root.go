package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aurasync/internal/config"
	"github.com/fakeyudi/aurasync/internal/logging"
	"github.com/fakeyudi/aurasync/internal/profile"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// logger is built from --log-level or the configured level.
var logger = logging.Discard()

var (
	flagLogLevel string
	flagLogFile  string
	flagDir      string
)

// logFile is the open --log-file target, closed in PersistentPostRun.
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:          "aurasync",
	Short:        "Record editor activity as heartbeats and ship them to a collector",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to aurasync! Looks like this is your first time.")
			if err := runSetup(cmd, true); err != nil {
				return err
			}
		}
		return loadSettings(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

// loadSettings loads the profile and the merged config for the project
// directory, then builds the logger.
func loadSettings(cmd *cobra.Command) error {
	closeLogFile()
	activeProfile = nil
	if profile.Exists() {
		p, err := profile.Load()
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		activeProfile = p
	}

	dir, err := projectDir()
	if err != nil {
		return err
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	// Profile values fill in config gaps.
	if activeProfile != nil {
		if cfg.Endpoint == "" {
			cfg.Endpoint = activeProfile.Endpoint
		}
		if cfg.APIKey == "" {
			cfg.APIKey = activeProfile.APIKey
		}
	}

	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if flagLogFile == "" {
		logger = logging.New(cmd.ErrOrStderr(), level)
		return nil
	}
	f, err := logging.OpenFile(flagLogFile)
	if err != nil {
		return err
	}
	logFile = f
	logger = logging.New(f, level)
	return nil
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// projectDir is the directory whose .aurasync.yaml applies.
func projectDir() (string, error) {
	dir := flagDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory: %w", err)
	}
	return abs, nil
}

// watchDir resolves the configured watch directory against the project
// directory.
func watchDir() (string, error) {
	base, err := projectDir()
	if err != nil {
		return "", err
	}
	if cfg.WatchDir == "" || cfg.WatchDir == "." {
		return base, nil
	}
	if filepath.IsAbs(cfg.WatchDir) {
		return filepath.Clean(cfg.WatchDir), nil
	}
	return filepath.Join(base, cfg.WatchDir), nil
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// GetProfile returns the active user profile.
func GetProfile() *profile.Profile {
	return activeProfile
}

// Logger returns the logger configured for the current command.
func Logger() *slog.Logger {
	return logger
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "append logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", "", "project directory (default: current directory)")
}
