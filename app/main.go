package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/filing-comb/app/api"
	"github.com/lysyi3m/filing-comb/app/cfg"
	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
	"github.com/lysyi3m/filing-comb/app/notify"
	"github.com/lysyi3m/filing-comb/app/stream"
	"github.com/lysyi3m/filing-comb/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if appCfg == nil {
		// help was shown
		return 0
	}

	setupLogger(appCfg.Debug)

	if appCfg.InputFile != "" {
		input, err := feed.LoadInput(appCfg.InputFile)
		if err != nil {
			slog.Error("Failed to load input file", "path", appCfg.InputFile, "error", err)
			return 1
		}
		feed.ApplyInput(appCfg, input)
		slog.Debug("Input file applied", "path", appCfg.InputFile)
	}

	feedURLs := feed.ResolveFeedURLs(appCfg.StartURLs, appCfg.CIKOrTickerList, appCfg.FeedURLTemplate)
	if len(feedURLs) == 0 {
		slog.Error("No feeds configured: provide start URLs or CIK/ticker identifiers")
		return 1
	}

	replayPolicy, err := feed.ParseReplayPolicy(appCfg.ReplayPolicy)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}
	failurePolicy, err := feed.ParseFailurePolicy(appCfg.FailurePolicy)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	slog.Info("Starting Filing Comb",
		"version", appCfg.Version,
		"feeds", len(feedURLs),
		"filing_types", appCfg.FilingTypes,
		"max_entries_per_feed", appCfg.MaxEntriesPerFeed,
		"concurrency", appCfg.MaxRequestsPerCrawl,
		"run_once", appCfg.RunOnce)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		return 1
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return 1
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	alertRepo := database.NewAlertRepository(db)
	cursors := feed.NewCursorStore(database.NewKVRepository(db))

	var sink feed.AlertSink = alertRepo
	if len(appCfg.KafkaBrokers) > 0 {
		producer := stream.NewProducer(appCfg.KafkaBrokers, appCfg.KafkaTopic)
		defer producer.Close()
		sink = feed.NewSinkChain(alertRepo, producer)
	}

	httpClient := &http.Client{Timeout: appCfg.PollTimeout}
	fetcher := tasks.NewHTTPFetcher(httpClient, appCfg.UserAgent, appCfg.RequestsPerSecond, appCfg.PollTimeout)

	var dispatcher feed.Dispatcher
	var webhook *notify.Webhook
	if appCfg.WebhookURL != "" {
		webhook = notify.NewWebhook(&http.Client{}, appCfg.WebhookURL, appCfg.UserAgent)
		dispatcher = webhook
	}

	var enricher feed.Enricher
	if appCfg.IncludeFullFiling {
		enricher = tasks.NewFullTextEnricher(fetcher, feed.NewContentExtractor())
	}

	poller := feed.NewPoller(cursors, sink, dispatcher, enricher, feed.NewTypeFilter(appCfg.FilingTypes), feed.PollerOptions{
		MaxEntriesPerFeed: appCfg.MaxEntriesPerFeed,
		ReplayPolicy:      replayPolicy,
		FailurePolicy:     failurePolicy,
		IncludeFullFiling: appCfg.IncludeFullFiling,
	})

	pipeline := &tasks.Pipeline{
		Fetcher:  fetcher,
		Parser:   feed.NewParser(),
		Poller:   poller,
		FeedRepo: feedRepo,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.RunOnce {
		_, err := tasks.RunOnce(ctx, pipeline, feedURLs, appCfg.MaxRequestsPerCrawl, appCfg.PollTimeout)
		if webhook != nil {
			webhook.Wait()
		}
		if err != nil {
			slog.Error("Run interrupted", "error", err)
			return 1
		}
		return 0
	}

	scheduler := tasks.NewScheduler(pipeline, feedURLs, tasks.SchedulerOptions{
		Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		WorkerCount: appCfg.MaxRequestsPerCrawl,
		PollTimeout: appCfg.PollTimeout,
	})
	scheduler.Start()

	handler := api.NewHandler(feedRepo, alertRepo, cursors, scheduler, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Debug("Scheduler stopped")

	if webhook != nil {
		webhook.Wait()
	}

	slog.Info("Filing Comb stopped")
	return exitCode
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
