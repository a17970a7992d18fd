package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/filing-comb/app/feed"
)

// SQLFeedRepository keeps per-feed poll bookkeeping in the feeds table
type SQLFeedRepository struct {
	db  *DB
	now func() time.Time
}

func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db, now: time.Now}
}

// UpsertFeed registers a feed address, keyed like its cursor
func (r *SQLFeedRepository) UpsertFeed(ctx context.Context, feedURL string, company *string) error {
	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (feed_key, feed_url, company, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (feed_key) DO UPDATE SET
			company = excluded.company,
			updated_at = excluded.updated_at
	`, feed.FeedKey(feedURL), feedURL, nullString(company), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}
	return nil
}

// RecordPoll stores the outcome of one poll, registering the feed if needed.
// A nil pollErr marks success and clears the last error.
func (r *SQLFeedRepository) RecordPoll(ctx context.Context, feedURL string, entryCount, alertCount int, pollErr error) error {
	now := formatTime(r.now())

	var err error
	if pollErr == nil {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO feeds (
				feed_key, feed_url, last_polled_at, last_success_at, last_error,
				entry_count, alert_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, '', ?, ?, ?, ?)
			ON CONFLICT (feed_key) DO UPDATE SET
				last_polled_at = excluded.last_polled_at,
				last_success_at = excluded.last_success_at,
				last_error = '',
				entry_count = excluded.entry_count,
				alert_count = feeds.alert_count + excluded.alert_count,
				updated_at = excluded.updated_at
		`, feed.FeedKey(feedURL), feedURL, now, now, entryCount, alertCount, now, now)
	} else {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO feeds (
				feed_key, feed_url, last_polled_at, last_error, alert_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (feed_key) DO UPDATE SET
				last_polled_at = excluded.last_polled_at,
				last_error = excluded.last_error,
				alert_count = feeds.alert_count + excluded.alert_count,
				updated_at = excluded.updated_at
		`, feed.FeedKey(feedURL), feedURL, now, pollErr.Error(), alertCount, now, now)
	}

	if err != nil {
		return fmt.Errorf("failed to record poll: %w", err)
	}
	return nil
}

const feedColumns = `feed_key, feed_url, company, last_polled_at, last_success_at, last_error,
	entry_count, alert_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var f Feed
	var company, lastPolled, lastSuccess sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&f.FeedKey, &f.FeedURL, &company, &lastPolled, &lastSuccess, &f.LastError,
		&f.EntryCount, &f.AlertCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	f.Company = stringPtr(company)

	var err error
	if f.LastPolledAt, err = parseNullTime(lastPolled); err != nil {
		return nil, err
	}
	if f.LastSuccessAt, err = parseNullTime(lastSuccess); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &f, nil
}

// GetFeed returns nil when the key is unknown
func (r *SQLFeedRepository) GetFeed(ctx context.Context, feedKey string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE feed_key = ?`, feedKey)

	f, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return f, nil
}

func (r *SQLFeedRepository) GetFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY feed_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *SQLFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
