package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
)

// ProcessFeedTask fetches one feed and runs its entries through the poller
type ProcessFeedTask struct {
	Task
	fetcher  FeedFetcher
	parser   *feed.Parser
	poller   *feed.Poller
	feedRepo database.FeedRepository
	Result   *feed.PollResult
}

func NewProcessFeedTask(feedURL string, fetcher FeedFetcher, parser *feed.Parser, poller *feed.Poller, feedRepo database.FeedRepository) *ProcessFeedTask {
	task := &ProcessFeedTask{
		Task:     NewTask(TaskTypeProcessFeed, feedURL),
		fetcher:  fetcher,
		parser:   parser,
		poller:   poller,
		feedRepo: feedRepo,
	}
	// the next tick polls again
	task.MaxRetries = 0
	return task
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, _, err := t.fetcher.Fetch(ctx, t.FeedURL)
	if err != nil {
		return t.fail(ctx, fmt.Errorf("failed to fetch feed: %w", err))
	}

	raw, err := t.parser.Run(data)
	if err != nil {
		return t.fail(ctx, fmt.Errorf("failed to parse feed: %w", err))
	}

	entries := feed.NormalizeAll(raw)

	result, err := t.poller.Poll(ctx, t.FeedURL, entries)
	if result != nil {
		t.Result = result
	}
	if err != nil {
		alerts := 0
		if result != nil {
			alerts = result.Emitted
		}
		return t.record(ctx, len(entries), alerts, fmt.Errorf("poll interrupted: %w", err))
	}

	if err := t.record(ctx, len(entries), result.Emitted, nil); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedURL,
		"duration", t.GetDuration(),
		"total", result.Total,
		"fresh", result.Fresh,
		"emitted", result.Emitted,
		"filtered", result.Filtered,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"replayed", result.Replayed,
		"cursor_written", result.CursorWritten)

	return nil
}

func (t *ProcessFeedTask) fail(ctx context.Context, err error) error {
	return t.record(ctx, 0, 0, err)
}

// record stores the poll outcome and hands pollErr back to the caller
func (t *ProcessFeedTask) record(ctx context.Context, entryCount, alertCount int, pollErr error) error {
	if t.feedRepo == nil {
		return pollErr
	}

	// bookkeeping must land even when the poll was cancelled
	recordCtx := context.WithoutCancel(ctx)
	if err := t.feedRepo.RecordPoll(recordCtx, t.FeedURL, entryCount, alertCount, pollErr); err != nil {
		slog.Warn("Failed to record poll", "feed", t.FeedURL, "error", err)
	}
	return pollErr
}
