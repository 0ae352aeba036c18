package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"bmexporter/pkg/ui"
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
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bmexporter",
	Short: "Export your bookmarked posts to a local markdown archive",
	Long: `Bookmark Exporter walks your bookmark timeline and writes each post to a
markdown file, one file per bookmark.

Features:
  - Resumable exports that survive API rate limits
  - Incremental runs that stop when they reach already-exported territory
  - Self-thread and reply capture for bookmarked posts
  - Recursive quoted-post expansion with a depth bound
  - Link title resolution with a local metadata cache
  - Media downloads alongside the markdown archive
  - Secure credential storage using the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" && !quiet {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .bmexporter.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress banner and non-essential output")

	rootCmd.SetVersionTemplate(`Bookmark Exporter {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
