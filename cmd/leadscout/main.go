package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/crawler"
	"github.com/leadscout/leadscout/export"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/session"
	"github.com/leadscout/leadscout/websearch"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	initLogger(cfg.Log)

	root := &cobra.Command{
		Use:           "leadscout",
		Short:         "Authenticated crawl engine for lead discovery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		searchCmd(cfg),
		jobsCmd(cfg),
		profileCmd(cfg),
		websearchCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func searchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Crawl people-search results for each query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cfg, models.KindSearchProfile, args)
		},
	}
}

func jobsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <query>...",
		Short: "Crawl jobs-search results for each query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cfg, models.KindJobListing, args)
		},
	}
}

func profileCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <url>...",
		Short: "Crawl individual profile pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cfg, models.KindDetailedProfile, args)
		},
	}
}

func websearchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "websearch <query>...",
		Short: "Find profiles through a public search engine, no login needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebSearch(cfg, args)
		},
	}
}

// runCrawl executes one authenticated batch: launch browser, log in,
// crawl, export per window, report.
func runCrawl(cfg *config.Config, kind models.RecordKind, args []string) error {
	runID := uuid.NewString()
	start := time.Now()
	slog.Info("crawl starting", "runID", runID, "kind", string(kind), "targets", len(args))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer b.Close()

	writer, err := export.NewWriter(cfg.Export.Dir, kind)
	if err != nil {
		return err
	}
	defer writer.Close()

	stats := models.NewRunStats()
	stats.SampleMemory()

	store := session.NewStore(cfg.SessionDir(), cfg.Auth.Profile)
	c := crawler.New(cfg, b, store, stats)
	c.SetWindowObserver(func(window int, items []models.BatchItem) {
		if err := writer.AppendItems(items); err != nil {
			slog.Error("partial export failed", "window", window, "error", err)
		}
	})

	var items []models.BatchItem
	switch kind {
	case models.KindJobListing:
		items, err = c.SearchJobs(ctx, args)
	case models.KindDetailedProfile:
		items, err = c.VisitProfiles(ctx, args)
	default:
		items, err = c.SearchPeople(ctx, args)
	}
	if err != nil {
		return err
	}

	logSummary(runID, start, stats, writer)
	logFailures(items)
	return nil
}

// runWebSearch executes the login-free discovery path.
func runWebSearch(cfg *config.Config, queries []string) error {
	runID := uuid.NewString()
	start := time.Now()
	slog.Info("websearch starting", "runID", runID, "queries", len(queries))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := export.NewWriter(cfg.Export.Dir, models.KindSearchProfile)
	if err != nil {
		return err
	}
	defer writer.Close()

	stats := models.NewRunStats()
	stats.SampleMemory()

	s := websearch.New(cfg.WebSearch, stats)
	records, err := s.Run(ctx, queries)
	if len(records) > 0 {
		if werr := writer.Append(records); werr != nil {
			slog.Error("export failed", "error", werr)
		}
	}
	if err != nil {
		// Interrupts still flush what was gathered; report and exit.
		logSummary(runID, start, stats, writer)
		return err
	}

	logSummary(runID, start, stats, writer)
	return nil
}

// logSummary emits the end-of-run report.
func logSummary(runID string, start time.Time, stats *models.RunStats, writer *export.Writer) {
	stats.SampleMemory()
	snap := stats.Snapshot()
	slog.Info("run summary",
		"runID", runID,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"itemsProcessed", snap.ItemsProcessed,
		"recordsExtracted", snap.RecordsExtracted,
		"recordsSkipped", snap.RecordsSkipped,
		"recordsDuplicate", snap.RecordsDuplicate,
		"peakRSSMB", snap.PeakRSSBytes/(1024*1024),
		"output", writer.Path(),
		"rows", writer.Rows(),
	)
}

// logFailures lists per-item failures so a caller can retry selectively.
func logFailures(items []models.BatchItem) {
	for _, item := range items {
		if item.Outcome == models.OutcomeFailed {
			slog.Warn("target failed", "url", item.Target.URL,
				"code", item.ErrCode, "message", item.ErrMsg)
		}
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
