package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bmexporter/pkg/auth"
	"bmexporter/pkg/config"
	"bmexporter/pkg/export"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/twitter"
	"bmexporter/pkg/ui"
)

var (
	// Export command flags
	outputDir   string
	accountName string
	maxPages    int
	rateLimit   int
	quoteDepth  int
	rebuild     bool
	backfills   []string
	resumeFresh bool
	noMedia     bool
	noReplies   bool
	singlePost  string
	forceSingle bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export bookmarked posts to the local archive",
	Long: `Walk the bookmark timeline newest-first and write each post to a markdown
file named <date>-<author>-<id>.md.

A run interrupted by a rate limit saves its position and exits cleanly;
running the same command again resumes exactly where it stopped. A run
that reaches posts exported by a previous run stops early, so routine
incremental runs only pay for what is new.

Credentials come from stored accounts ('bmexporter auth login'),
environment variables (BMEXPORTER_AUTH_TOKEN and BMEXPORTER_CSRF_TOKEN),
or the configuration file.`,
	Example: `  # Incremental export with default settings
  bmexporter export

  # Export to a specific directory, capped at 10 pages
  bmexporter export --output ./archive --max-pages 10

  # Full rescan that fills in missing link titles and media
  bmexporter export --rebuild --backfill metadata --backfill media

  # Discard saved state and start from the top
  bmexporter export --resume-fresh

  # Export a single post by id
  bmexporter export --post 1234567890`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the archive")
	exportCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	exportCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to fetch this run (0 = no cap)")
	exportCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute (0 = config default)")
	exportCmd.Flags().IntVar(&quoteDepth, "quote-depth", -1, "quoted-post expansion depth (-1 = config default, 0 = unlimited)")
	exportCmd.Flags().BoolVar(&rebuild, "rebuild", false, "rescan the whole timeline, ignoring the previous run boundary")
	exportCmd.Flags().StringSliceVar(&backfills, "backfill", nil, "rebuild sub-operation: replies, metadata, or media (repeatable)")
	exportCmd.Flags().BoolVar(&resumeFresh, "resume-fresh", false, "discard saved pagination state and start from the top")
	exportCmd.Flags().BoolVar(&noMedia, "no-media", false, "skip media downloads")
	exportCmd.Flags().BoolVar(&noReplies, "no-replies", false, "skip reply capture")
	exportCmd.Flags().StringVar(&singlePost, "post", "", "export a single post by id instead of walking bookmarks")
	exportCmd.Flags().BoolVar(&forceSingle, "force", false, "with --post, re-export even if the post already exists")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadExportConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("Bookmark exporter starting")

	if err := resolveCredentials(cfg); err != nil {
		os.Exit(1)
	}

	client := twitter.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log)
	client.SetCredentials(cfg.Auth.AuthToken, cfg.Auth.CSRFToken, cfg.Auth.UserAgent)

	exporter, err := export.New(cfg, client)
	if err != nil {
		ui.PrintError("Failed to initialize exporter", err.Error())
		os.Exit(1)
	}
	exporter.SetMetadataFetcher(client.ResolveLink)

	if resumeFresh {
		if err := exporter.DiscardCheckpoint(); err != nil {
			ui.PrintError("Failed to discard saved state", err.Error())
			os.Exit(1)
		}
		ui.PrintWarning("Saved pagination state discarded")
	}

	ctx := context.Background()
	start := time.Now()

	var result *export.Result
	if singlePost != "" {
		result, err = exporter.RunOne(ctx, singlePost, forceSingle)
	} else {
		opts := export.Options{
			Rebuild:  rebuild,
			MaxPages: maxPages,
		}
		for _, b := range backfills {
			switch b {
			case "replies":
				opts.Backfills = append(opts.Backfills, export.BackfillReplies)
			case "metadata":
				opts.Backfills = append(opts.Backfills, export.BackfillMetadata)
			case "media":
				opts.Backfills = append(opts.Backfills, export.BackfillMedia)
			default:
				ui.PrintError("Unknown backfill operation", b)
				os.Exit(1)
			}
		}
		result, err = exporter.Run(ctx, opts)
	}

	if err != nil {
		log.WithError(err).Error("Export failed")
		ui.PrintError("EXPORT FAILED", err.Error())
		os.Exit(1)
	}

	ui.PrintSummary(ui.RunSummary{
		Exported:    result.Exported,
		Skipped:     result.Skipped,
		Errors:      result.Errors,
		Pages:       result.Pages,
		Duration:    time.Since(start),
		RateLimited: result.RateLimited,
		HitBoundary: result.HitPreviousBoundary,
	})

	notifier := ui.NewNotifier()
	if result.RateLimited {
		log.WithField("checkpoint", exporter.CheckpointPath()).Info("Run paused on rate limit")
		notifier.SendNotification("Bookmark Export Paused",
			fmt.Sprintf("Rate limit reached after %d posts. Run again later to resume.", result.Exported))
	} else if result.Exported > 0 {
		notifier.SendSuccess("Bookmark Export Complete",
			fmt.Sprintf("Exported %d posts (%d skipped, %d errors)", result.Exported, result.Skipped, result.Errors))
	}

	// A rate-limited pause is expected behavior, not a failure.
	return nil
}

// loadExportConfig loads configuration and applies command-line overrides.
func loadExportConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if rateLimit > 0 {
		cfg.RateLimit.RequestsPerMinute = rateLimit
	}
	if quoteDepth >= 0 {
		cfg.Export.QuoteDepth = quoteDepth
	}
	if noMedia {
		cfg.Download.Enabled = false
	}
	if noReplies {
		cfg.Export.IncludeReplies = false
	}
	if cmd.Flags().Changed("log-level") || logLevel != "info" {
		cfg.Logging.Level = logLevel
	}

	return cfg, cfg.Validate()
}

// resolveCredentials fills cfg.Auth from stored accounts when the config
// and environment did not provide credentials.
func resolveCredentials(cfg *config.Config) error {
	if accountName == "" && cfg.Auth.AuthToken != "" && cfg.Auth.CSRFToken != "" {
		return nil
	}

	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	var account *auth.Account
	if accountName != "" {
		account, err = credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'bmexporter auth list' to see stored accounts")
			return err
		}
	} else {
		account, err = credManager.RetrieveDefault()
		if err != nil {
			ui.PrintError("No credentials found", "")
			fmt.Println("\nTo store credentials securely, run:")
			fmt.Println("  bmexporter auth login")
			fmt.Println("\nOr set environment variables:")
			fmt.Println("  export BMEXPORTER_AUTH_TOKEN=your_auth_token")
			fmt.Println("  export BMEXPORTER_CSRF_TOKEN=your_csrf_token")
			return err
		}
	}

	cfg.Auth.AuthToken = account.AuthToken
	cfg.Auth.CSRFToken = account.CSRFToken
	if account.UserAgent != "" {
		cfg.Auth.UserAgent = account.UserAgent
	}
	logger.GetLogger().WithField("account", account.Handle).Info("Using stored credentials")
	ui.PrintInfo("Using account", account.Handle)

	return nil
}
