package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"mineralscraper/pkg/auth"
	"mineralscraper/pkg/checkpoint"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/reddit"
	"mineralscraper/pkg/scraper"
	"mineralscraper/pkg/storage"
	"mineralscraper/pkg/ui"
	"mineralscraper/pkg/ui/tui"
)

var (
	// Scrape command flags
	mappingFile  string
	dataDir      string
	requestDelay time.Duration
	saveEvery    int
	workers      int
	searchLimit  int
	backend      string
	accountName  string
	forceRestart bool
	useTUI       bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [mineral...]",
	Short: "Collect posts and comments for the minerals in the mapping",
	Long: `Search every subreddit listed for each mineral and store the matching posts
with all their comments under <data-dir>/<mineral>/.

Posts whose comments were fully collected by an earlier run are skipped, so
running the command again only fetches what is new. Pass mineral names to
limit the run to those minerals.

Credentials are taken from, in order:
  - the account named with --account
  - client_id/client_secret in the config file or MINERALSCRAPER_* variables
  - the first account stored with 'mineralscraper auth login'
Without any, the public JSON endpoints are used.`,
	Example: `  # Scrape every mineral in configs/subreddit_mapping.json
  mineralscraper scrape

  # Only two minerals, with the dashboard
  mineralscraper scrape quartz pyrite --tui

  # Faster pacing with two comment workers
  mineralscraper scrape --delay 500ms --workers 2

  # Fetch comments again for every post
  mineralscraper scrape --force-restart`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&mappingFile, "mapping", "m", "", "mineral to subreddits mapping file (default configs/subreddit_mapping.json)")
	scrapeCmd.Flags().StringVarP(&dataDir, "data-dir", "o", "", "directory the per-mineral data is written to (default data)")
	scrapeCmd.Flags().DurationVar(&requestDelay, "delay", time.Second, "pause between posts")
	scrapeCmd.Flags().IntVar(&saveEvery, "save-every", 10, "save after this many processed posts")
	scrapeCmd.Flags().IntVar(&workers, "workers", 1, "number of concurrent comment fetches")
	scrapeCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum posts per subreddit search (0 for no limit)")
	scrapeCmd.Flags().StringVar(&backend, "backend", "", "progress backend (json, sqlite)")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	scrapeCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard saved progress and fetch every post again")
	scrapeCmd.Flags().BoolVar(&useTUI, "tui", false, "show the interactive dashboard")
}

// scrapeFlags returns the scrape flags the user set explicitly, keyed the
// way config.MergeCommandLineFlags expects
func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	values := map[string]interface{}{
		"mapping":    mappingFile,
		"data-dir":   dataDir,
		"delay":      requestDelay,
		"save-every": saveEvery,
		"workers":    workers,
		"limit":      searchLimit,
		"backend":    backend,
	}
	for name, value := range values {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, scrapeFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := initLogging(cmd, cfg, useTUI)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.WithField("version", version).Info("mineralscraper starting")

	mapping, err := config.LoadMapping(cfg.Scrape.MappingFile)
	if err != nil {
		return err
	}
	mapping, err = mapping.Filter(args)
	if err != nil {
		return err
	}

	if err := resolveCredentials(cfg, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reporter ui.Reporter
	var dashboard *tui.TUI
	if useTUI {
		dashboard = tui.NewTUI(cancel)
		reporter = dashboard
	} else {
		reporter = ui.NewProgressDisplay(os.Stdout, verbose, quiet)
	}

	client, err := reddit.NewClient(ctx, cfg, log, reddit.WithQuotaObserver(func(q reddit.Quota) {
		reporter.UpdateRateLimit(q.Used, q.Used+q.Remaining, q.ResetAt)
	}))
	if err != nil {
		return fmt.Errorf("failed to create Reddit client: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.DataDir)
	if err != nil {
		return err
	}
	progress, err := checkpoint.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer progress.Close()

	s := scraper.New(cfg, client, store, progress, log)
	s.SetReporter(reporter)
	opts := scraper.RunOptions{ForceRestart: forceRestart}

	if !useTUI {
		ui.PrintInfo("Minerals", fmt.Sprintf("%d", mapping.Len()))
		ui.PrintInfo("Access", string(client.Mode()))
		ui.PrintInfo("Data directory", cfg.Output.DataDir)
	}

	var results []scraper.MineralStats
	var runErr error
	if dashboard != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(dashboard.Start)
		g.Go(func() error {
			defer dashboard.Stop()
			results, runErr = s.Run(gctx, mapping, opts)
			return nil
		})
		if err := g.Wait(); err != nil {
			log.WithError(err).Error("Dashboard failed")
			return fmt.Errorf("dashboard failed: %w", err)
		}
	} else {
		results, runErr = s.Run(ctx, mapping, opts)
	}

	printTotals(results)

	notifier := ui.NewNotifier(cfg.Notifications)
	switch {
	case errors.Is(runErr, context.Canceled):
		ui.PrintWarning("Interrupted, progress saved. Run the same command to resume.")
		return fmt.Errorf("scrape interrupted: %w", runErr)
	case runErr != nil:
		if err := notifier.RunFailed(runErr); err != nil {
			log.WithError(err).Debug("Notification failed")
		}
		return fmt.Errorf("scrape finished with errors: %w", runErr)
	}

	if err := notifier.RunComplete(mineralResults(results)); err != nil {
		log.WithError(err).Debug("Notification failed")
	}
	ui.PrintSuccess("Scrape completed")
	return nil
}

// resolveCredentials fills the Reddit section of cfg from the credential
// stores. An explicit --account must exist; otherwise a missing account just
// means anonymous access.
func resolveCredentials(cfg *config.Config, log logger.Logger) error {
	if accountName == "" && cfg.Reddit.ClientID != "" {
		log.Info("Using credentials from configuration")
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if accountName != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		log.WithError(err).Warn("Credential stores unavailable, continuing anonymously")
		return nil
	}

	account, err := manager.Resolve(accountName)
	if err != nil {
		if accountName != "" {
			ui.PrintInfo("Available accounts", "Use 'mineralscraper auth list' to see stored accounts")
			return fmt.Errorf("account %q not found: %w", accountName, err)
		}
		log.Info("No stored credentials, using the public endpoints")
		return nil
	}

	account.Apply(&cfg.Reddit)
	log.WithField("account", account.Name).Info("Using stored credentials")
	if !useTUI {
		ui.PrintInfo("Using account", account.Name)
	}
	return nil
}

func mineralResults(stats []scraper.MineralStats) []ui.MineralResult {
	results := make([]ui.MineralResult, 0, len(stats))
	for _, s := range stats {
		results = append(results, ui.MineralResult{
			Mineral:       s.Mineral,
			TotalPosts:    s.TotalPosts,
			TotalComments: s.TotalComments,
			NewPosts:      s.NewPosts,
			NewComments:   s.NewComments,
			Skipped:       s.Skipped,
			Failed:        s.Failed,
			Interrupted:   s.Interrupted,
		})
	}
	return results
}

func printTotals(stats []scraper.MineralStats) {
	if len(stats) == 0 {
		return
	}
	var newPosts, newComments, failed int
	for _, s := range stats {
		newPosts += s.NewPosts
		newComments += s.NewComments
		failed += s.Failed
		for _, sub := range s.FailedSubreddits {
			ui.PrintWarning(fmt.Sprintf("%s: search failed in r/%s", s.Mineral, sub))
		}
	}
	ui.PrintInfo("Run totals", fmt.Sprintf("%d minerals, %d new posts, %d new comments, %d failed posts",
		len(stats), newPosts, newComments, failed))
}
