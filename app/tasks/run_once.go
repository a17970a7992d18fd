package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type RunSummary struct {
	Feeds    int
	Failed   int
	Emitted  int
	Duration time.Duration
}

// RunOnce polls every feed a single time with at most concurrency feeds in
// flight, then returns. Per-feed failures are logged and counted; only
// cancellation of ctx ends the run early.
func RunOnce(ctx context.Context, pipeline *Pipeline, feedURLs []string, concurrency int, pollTimeout time.Duration) (RunSummary, error) {
	started := time.Now()
	summary := RunSummary{Feeds: len(feedURLs)}
	var mu sync.Mutex

	if concurrency <= 0 {
		concurrency = 1
	}

	for _, feedURL := range feedURLs {
		if err := pipeline.NewSyncFeedTask(feedURL).Execute(ctx); err != nil {
			slog.Warn("Failed to sync feed", "feed", feedURL, "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, feedURL := range feedURLs {
		task := pipeline.NewProcessFeedTask(feedURL)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			task.Start()

			taskCtx := gctx
			if pollTimeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(gctx, pollTimeout)
				defer cancel()
			}

			err := task.Execute(taskCtx)

			mu.Lock()
			defer mu.Unlock()
			if task.Result != nil {
				summary.Emitted += task.Result.Emitted
			}
			if err != nil {
				summary.Failed++
				slog.Error("Feed poll failed", "feed", task.FeedURL, "error", err)
			}

			// only a cancelled run stops the other feeds
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	summary.Duration = time.Since(started)

	slog.Info("Run completed",
		"feeds", summary.Feeds,
		"failed", summary.Failed,
		"emitted", summary.Emitted,
		"duration", summary.Duration)

	return summary, err
}
