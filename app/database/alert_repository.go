package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lysyi3m/filing-comb/app/feed"
)

// SQLAlertRepository stores emitted alerts in the filing_alerts table
type SQLAlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *SQLAlertRepository {
	return &SQLAlertRepository{db: db}
}

func (r *SQLAlertRepository) SaveAlert(ctx context.Context, alert feed.Alert) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO filing_alerts (
			feed_url, company, filing_id, filing_type, title, summary, link,
			published_at, full_filing_text, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_url, filing_id) DO NOTHING
	`, alert.FeedURL, nullString(alert.Company), alert.FilingID, nullString(alert.FilingType),
		alert.Title, alert.Summary, alert.Link, formatNullTime(alert.PublishedAt),
		nullString(alert.FullFilingText), formatTime(alert.ScrapedAt))
	if err != nil {
		return false, fmt.Errorf("failed to save alert: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// ListAlerts returns the most recently scraped alerts first
func (r *SQLAlertRepository) ListAlerts(ctx context.Context, q AlertQuery) ([]feed.Alert, error) {
	var conditions []string
	var args []any

	if q.FeedURL != "" {
		conditions = append(conditions, "feed_url = ?")
		args = append(args, q.FeedURL)
	}
	if q.FilingType != "" {
		conditions = append(conditions, "filing_type = ? COLLATE NOCASE")
		args = append(args, q.FilingType)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	if limit > MaxAlertLimit {
		limit = MaxAlertLimit
	}

	query := `
		SELECT feed_url, company, filing_id, filing_type, title, summary, link,
		       published_at, full_filing_text, scraped_at
		FROM filing_alerts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scraped_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []feed.Alert
	for rows.Next() {
		var alert feed.Alert
		var company, filingType, fullText, publishedAt sql.NullString
		var scrapedAt string

		if err := rows.Scan(&alert.FeedURL, &company, &alert.FilingID, &filingType,
			&alert.Title, &alert.Summary, &alert.Link, &publishedAt, &fullText, &scrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		alert.Company = stringPtr(company)
		alert.FilingType = stringPtr(filingType)
		alert.FullFilingText = stringPtr(fullText)

		if alert.PublishedAt, err = parseNullTime(publishedAt); err != nil {
			return nil, err
		}
		scraped, err := parseNullTime(sql.NullString{String: scrapedAt, Valid: true})
		if err != nil {
			return nil, err
		}
		if scraped != nil {
			alert.ScrapedAt = *scraped
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}

func (r *SQLAlertRepository) GetAlertCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM filing_alerts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get alert count: %w", err)
	}
	return count, nil
}
