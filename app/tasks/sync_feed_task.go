package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
)

// SyncFeedTask registers a feed address and its company in the feeds table
type SyncFeedTask struct {
	Task
	feedRepo database.FeedRepository
}

func NewSyncFeedTask(feedURL string, feedRepo database.FeedRepository) *SyncFeedTask {
	return &SyncFeedTask{
		Task:     NewTask(TaskTypeSyncFeed, feedURL),
		feedRepo: feedRepo,
	}
}

func (t *SyncFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	company := feed.CompanyFromURL(t.FeedURL)
	if err := t.feedRepo.UpsertFeed(ctx, t.FeedURL, company); err != nil {
		return fmt.Errorf("failed to sync feed: %w", err)
	}

	slog.Debug("Feed synced", "feed", t.FeedURL, "feed_key", feed.FeedKey(t.FeedURL))
	return nil
}
