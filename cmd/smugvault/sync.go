package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"smugvault/pkg/auth"
	"smugvault/pkg/config"
	"smugvault/pkg/export"
	"smugvault/pkg/logger"
	"smugvault/pkg/report"
	"smugvault/pkg/smugmug"
	"smugvault/pkg/ui"
)

var (
	// Sync command flags
	outputDir       string
	concurrent      int
	rateLimit       int
	accountName     string
	maxRetries      int
	walkConcurrency int
	downloadTimeout int
	dryRun          bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [nickname]",
	Short: "Export an account's photo tree to the local directory",
	Long: `Walk the account's folder hierarchy, compare it against the local export
tree, and download whatever is missing or fails its checksum.

The nickname defaults to the configured account. Valid credentials must be
available through one of:
  - Stored credentials (use 'smugvault auth login' to store)
  - Environment variables (SMUGVAULT_API_KEY, SMUGVAULT_API_SECRET,
    SMUGVAULT_ACCESS_TOKEN, SMUGVAULT_ACCESS_SECRET)
  - Configuration file

Exit status: 0 when everything verified, 1 when the run aborted on a fatal
error, 2 when it finished but left failures or count discrepancies behind.`,
	Example: `  # Export using stored default credentials
  smugvault sync myaccount

  # Export to a specific directory with more workers
  smugvault sync myaccount --output /mnt/archive --concurrent 5

  # See what a run would do without touching anything
  smugvault sync myaccount --dry-run

  # Slow down for a flaky connection
  smugvault sync myaccount --rate-limit 30 --max-retries 6`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for the export tree")
	syncCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	syncCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute across all workers")
	syncCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	syncCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "maximum attempts per remote operation")
	syncCmd.Flags().IntVar(&walkConcurrency, "walk-concurrency", 2, "concurrent folder listings during the walk")
	syncCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 120, "per-download timeout in seconds")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only; download and write nothing")
}

func runSync(cmd *cobra.Command, args []string) {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent != 3 {
		flags["concurrent"] = concurrent
	}
	if rateLimit != 60 {
		flags["rate-limit"] = rateLimit
	}
	if maxRetries != 3 {
		flags["max-attempts"] = maxRetries
	}
	if walkConcurrency != 2 {
		flags["walk-concurrency"] = walkConcurrency
	}
	if downloadTimeout != 120 {
		flags["download-timeout"] = downloadTimeout
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if len(args) > 0 {
		flags["nickname"] = strings.TrimSpace(args[0])
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(report.ExitFatal)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(report.ExitFatal)
	}
	logger.WithField("version", version).Info("smugvault starting")

	account := resolveAccount(cfg)
	if account != nil {
		cfg.SmugMug.APIKey = account.APIKey
		cfg.SmugMug.APISecret = account.APISecret
		cfg.SmugMug.AccessToken = account.AccessToken
		cfg.SmugMug.AccessSecret = account.AccessSecret
		if cfg.SmugMug.Nickname == "" {
			cfg.SmugMug.Nickname = account.Nickname
		}
		if account.UserAgent != "" {
			cfg.SmugMug.UserAgent = account.UserAgent
		}
		ui.PrintInfo("Using account", account.Nickname)
	}

	if cfg.SmugMug.APIKey == "" || cfg.SmugMug.AccessToken == "" {
		ui.PrintError("No SmugMug credentials found", "run 'smugvault auth login' to store them")
		os.Exit(report.ExitFatal)
	}
	if cfg.SmugMug.Nickname == "" {
		ui.PrintError("No account nickname", "pass one as an argument or store it with the credentials")
		os.Exit(report.ExitFatal)
	}

	ui.PrintInfo("Exporting", cfg.SmugMug.Nickname)
	ui.PrintInfo("Destination", cfg.Output.BaseDirectory)

	creds := &smugmug.OAuth1Credentials{
		ConsumerKey:    cfg.SmugMug.APIKey,
		ConsumerSecret: cfg.SmugMug.APISecret,
		AccessToken:    cfg.SmugMug.AccessToken,
		AccessSecret:   cfg.SmugMug.AccessSecret,
	}

	engine := export.New(cfg, creds, logger.GetLogger())
	engine.DryRun = dryRun

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := engine.Run(ctx, cfg.SmugMug.Nickname)
	if rep == nil {
		logger.WithError(err).Error("export failed before any work was scheduled")
		ui.PrintError("Export failed", err.Error())
		os.Exit(report.ExitFatal)
	}

	fmt.Println(ui.RenderSummary(rep))
	if !dryRun && engine.ReportPath() != "" {
		ui.PrintInfo("Report", engine.ReportPath())
	}
	os.Exit(rep.ExitCode())
}

// resolveAccount picks stored credentials when the config carries none.
func resolveAccount(cfg *config.Config) *auth.Account {
	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Warn("credential manager unavailable")
		return nil
	}

	if accountName != "" {
		account, err := manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "use 'smugvault auth list' to see stored accounts")
			os.Exit(report.ExitFatal)
		}
		return account
	}

	// Config or environment already has a complete credential set.
	if cfg.SmugMug.APIKey != "" && cfg.SmugMug.APISecret != "" &&
		cfg.SmugMug.AccessToken != "" && cfg.SmugMug.AccessSecret != "" {
		return nil
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		return nil
	}
	return account
}
