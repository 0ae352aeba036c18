package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bmexporter/pkg/config"
	"bmexporter/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Bookmark Exporter configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BMEXPORTER_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.bmexporter.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration merged from all sources.

Sensitive values like credentials will be masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".bmexporter.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# Bookmark Exporter Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with BMEXPORTER_
# For example: BMEXPORTER_AUTH_TOKEN, BMEXPORTER_CSRF_TOKEN

# Platform credentials
# Prefer 'bmexporter auth login' over putting secrets in this file.
auth:
  # Auth token from the auth_token cookie
  auth_token: ""

  # CSRF token from the ct0 cookie
  csrf_token: ""

  # User agent string (optional)
  # Leave empty to use default
  user_agent: ""

# API endpoint settings
api:
  base_url: "https://x.com/i/api"
  timeout: 30s

# Export pipeline settings
export:
  # Fixed sleep between page fetches
  politeness_delay: 2s

  # Quoted-post expansion depth (0 = unlimited, capped internally)
  quote_depth: 0

  # Capture other users' direct replies
  include_replies: true

  # Maximum pages per invocation (0 = no cap)
  max_pages: 0

  # Stop after this many consecutive already-exported posts at the
  # head of the scan (0 = disabled)
  boundary_skip_threshold: 0

  # Override the platform data directory for checkpoint state
  state_dir: ""

# Output settings
output:
  directory: "./bookmarks"

# Media download settings
download:
  enabled: true

  # Number of concurrent media downloads
  # Range: 1-10
  concurrent_limit: 3

  timeout: 60s
  skip_videos: false
  retry_attempts: 3

# Rate limiting configuration
rate_limit:
  # Requests per minute against the API
  requests_per_minute: 30

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'bmexporter auth login' to store your credentials")
	fmt.Println("2. Run 'bmexporter config validate' to check the configuration")
	fmt.Println("3. Start exporting with 'bmexporter export'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	displayCfg := *cfg
	displayCfg.Auth.AuthToken = maskSecret(displayCfg.Auth.AuthToken)
	displayCfg.Auth.CSRFToken = maskSecret(displayCfg.Auth.CSRFToken)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (BMEXPORTER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			".bmexporter.yaml",
			".bmexporter.yml",
			filepath.Join(os.Getenv("HOME"), ".bmexporter.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "bmexporter", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	var problems []string

	if cfg.Auth.AuthToken == "" {
		warnings = append(warnings, "auth token not configured (stored accounts will be used)")
	}
	if cfg.Auth.CSRFToken == "" {
		warnings = append(warnings, "CSRF token not configured (stored accounts will be used)")
	}

	if cfg.Output.Directory != "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Politeness delay: %s\n", cfg.Export.PolitenessDelay)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Concurrent downloads: %d\n", cfg.Download.ConcurrentLimit)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "***"
}
