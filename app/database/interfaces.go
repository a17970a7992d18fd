package database

import (
	"context"

	"github.com/lysyi3m/filing-comb/app/feed"
)

type FeedRepository interface {
	UpsertFeed(ctx context.Context, feedURL string, company *string) error
	RecordPoll(ctx context.Context, feedURL string, entryCount, alertCount int, pollErr error) error
	GetFeed(ctx context.Context, feedKey string) (*Feed, error)
	GetFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)
}

// AlertRepository is the append-only alert sink. SaveAlert reports false when
// the (feed, filing) pair is already recorded.
type AlertRepository interface {
	SaveAlert(ctx context.Context, alert feed.Alert) (bool, error)
	ListAlerts(ctx context.Context, q AlertQuery) ([]feed.Alert, error)
	GetAlertCount(ctx context.Context) (int, error)
}

var (
	_ FeedRepository     = (*SQLFeedRepository)(nil)
	_ AlertRepository    = (*SQLAlertRepository)(nil)
	_ feed.KeyValueStore = (*KVRepository)(nil)
)
