package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mineralscraper",
	Short: "Collect Reddit posts and comments that mention minerals",
	Long: `mineralscraper searches a list of subreddits for each mineral in a mapping
file and stores every matching post with its full comment tree as JSON.

Features:
  - Incremental runs: posts already collected are skipped
  - OAuth script-app access with credentials kept in the system keychain
  - Anonymous access to the public JSON endpoints when no app is configured
  - Rate limiting that follows Reddit's quota headers
  - Periodic saves so an interrupted run resumes where it stopped
  - Optional full-screen dashboard`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}

		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" && !useTUI {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .mineralscraper.yaml or ~/.config/mineralscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show every post and all logs")

	rootCmd.SetVersionTemplate(`mineralscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mineralscraper %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\nOS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// loadConfig loads the configuration with the given command line overrides.
// The global log level only counts when the user set it.
func loadConfig(cmd *cobra.Command, flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}

	return config.Load(configFile, flags)
}

// initLogging sets up the global logger. The dashboard owns the terminal, so
// with it enabled logs only go to the configured file, if any.
func initLogging(cmd *cobra.Command, cfg *config.Config, dashboard bool) (logger.Logger, error) {
	logCfg := cfg.Logging

	// Logs share the terminal with the progress display, so at the default
	// level only problems are shown unless --verbose is set
	if quiet {
		logCfg.Level = "error"
	} else if !verbose && !cmd.Flags().Changed("log-level") && logCfg.Level == "info" {
		logCfg.Level = "warn"
	}

	if !dashboard {
		if err := logger.Initialize(&logCfg); err != nil {
			return nil, err
		}
		return logger.GetLogger(), nil
	}

	var w io.Writer = io.Discard
	if logCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(logCfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logCfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}

	log, err := logger.NewWithWriter(&logCfg, w)
	if err != nil {
		return nil, err
	}
	logger.SetLogger(log)
	return log, nil
}
