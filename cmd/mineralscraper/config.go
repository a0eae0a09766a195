package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/reddit"
	"mineralscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mineralscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (MINERALSCRAPER_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is written to .mineralscraper.yaml in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. Secrets are masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the mapping file",
	RunE:  runConfigValidate,
}

var forceInit bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)

	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".mineralscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !forceInit {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nUse --force to overwrite it.")
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'mineralscraper auth login' to store Reddit app credentials")
	fmt.Println("2. Edit scrape.mapping_file to point at your mineral mapping")
	fmt.Println("3. Run 'mineralscraper config validate' to check both")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (" + config.EnvPrefix + "_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: first found of .mineralscraper.yaml, configs/config.yaml, ~/.config/mineralscraper/config.yaml")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings []string
	mapping, err := config.LoadMapping(cfg.Scrape.MappingFile)
	if err != nil {
		ui.PrintError("Mapping file is invalid", err.Error())
		return err
	}

	if reddit.ModeFor(cfg.Reddit) == reddit.AuthModeAnonymous {
		warnings = append(warnings, "no Reddit app configured, the public endpoints will be used (see 'mineralscraper auth login')")
	}
	if cfg.Scrape.Workers > 1 && cfg.RateLimit.RequestDelay == 0 {
		warnings = append(warnings, "several workers with no request delay will hit the rate limit quickly")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	subreddits := 0
	for _, entry := range mapping.Entries() {
		subreddits += len(entry.Subreddits)
	}

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Mapping: %s (%d minerals, %d subreddit searches)\n", cfg.Scrape.MappingFile, mapping.Len(), subreddits)
	fmt.Printf("  Data directory: %s\n", cfg.Output.DataDir)
	fmt.Printf("  Access: %s\n", reddit.ModeFor(cfg.Reddit))
	fmt.Printf("  Rate limit: %d requests/minute, %s between posts\n", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestDelay)
	fmt.Printf("  Workers: %d\n", cfg.Scrape.Workers)
	fmt.Printf("  Progress backend: %s\n", cfg.Checkpoint.Backend)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
