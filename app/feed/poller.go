package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Cursors interface {
	Load(ctx context.Context, feedURL string) (Cursor, error)
	Save(ctx context.Context, c Cursor) error
}

// AlertSink persists emitted alerts. SaveAlert reports false when the alert
// was already present.
type AlertSink interface {
	SaveAlert(ctx context.Context, alert Alert) (bool, error)
}

// Dispatcher hands a notification off for background delivery. Dispatch must
// return without waiting for the delivery outcome.
type Dispatcher interface {
	Dispatch(n Notification)
}

// Enricher fetches the full text of the document behind link.
type Enricher interface {
	Enrich(ctx context.Context, link string) (string, error)
}

type PollerOptions struct {
	MaxEntriesPerFeed int
	ReplayPolicy      ReplayPolicy
	FailurePolicy     FailurePolicy
	IncludeFullFiling bool
}

// Poller runs the per-feed pipeline: window planning, classification,
// filtering, emission and cursor advance.
type Poller struct {
	cursors    Cursors
	sink       AlertSink
	dispatcher Dispatcher
	enricher   Enricher
	filter     *TypeFilter
	opts       PollerOptions
	now        func() time.Time
}

// NewPoller creates a poller. dispatcher and enricher may be nil.
func NewPoller(cursors Cursors, sink AlertSink, dispatcher Dispatcher, enricher Enricher, filter *TypeFilter, opts PollerOptions) *Poller {
	if filter == nil {
		filter = NewTypeFilter(nil)
	}
	return &Poller{
		cursors:    cursors,
		sink:       sink,
		dispatcher: dispatcher,
		enricher:   enricher,
		filter:     filter,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type PollResult struct {
	FeedURL       string
	Total         int
	Fresh         int
	Emitted       int
	Filtered      int
	Duplicates    int
	Failed        int
	Replayed      bool
	Alerts        []Alert
	Cursor        Cursor
	CursorWritten bool
}

// Poll processes one batch of entries for feedURL. The cursor is written only
// after every fresh entry has been handled; a cancelled context returns early
// and leaves the stored cursor untouched.
func (p *Poller) Poll(ctx context.Context, feedURL string, entries []Entry) (*PollResult, error) {
	cursor, err := p.cursors.Load(ctx, feedURL)
	if err != nil {
		slog.Warn("Cursor read failed, treating feed as unseen", "feed", feedURL, "error", err)
		cursor = Cursor{FeedKey: FeedKey(feedURL), FeedURL: feedURL}
	}

	plan := PlanWindow(cursor.LastSeenID, entries, p.opts.MaxEntriesPerFeed, p.opts.ReplayPolicy)

	result := &PollResult{
		FeedURL:  feedURL,
		Total:    len(entries),
		Fresh:    len(plan.Fresh),
		Replayed: plan.Replayed && cursor.LastSeenID != "",
		Cursor:   cursor,
	}

	if result.Replayed {
		slog.Warn("Cursor not found in window, replaying", "feed", feedURL, "last_seen_id", cursor.LastSeenID, "policy", p.opts.ReplayPolicy, "fresh", len(plan.Fresh))
	}

	company := CompanyFromURL(feedURL)
	failed := make([]bool, len(plan.Fresh))

	for i, entry := range plan.Fresh {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, alert, err := p.processEntry(ctx, feedURL, company, entry)
		if err != nil {
			slog.Error("Failed to process entry", "feed", feedURL, "filing_id", entry.ID, "error", err)
			failed[i] = true
			result.Failed++
			continue
		}

		switch outcome {
		case outcomeFiltered:
			result.Filtered++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeEmitted:
			result.Emitted++
			result.Alerts = append(result.Alerts, alert)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	nextID, write := NextCursor(cursor.LastSeenID, plan, failed, p.opts.FailurePolicy)
	if !write {
		return result, nil
	}

	next := Cursor{
		FeedKey:    cursor.FeedKey,
		LastSeenID: nextID,
		UpdatedAt:  p.now(),
		FeedURL:    feedURL,
	}
	if err := p.cursors.Save(ctx, next); err != nil {
		slog.Error("Cursor write failed", "feed", feedURL, "last_seen_id", nextID, "error", err)
		return result, nil
	}

	result.Cursor = next
	result.CursorWritten = true
	return result, nil
}

type entryOutcome int

const (
	outcomeEmitted entryOutcome = iota
	outcomeFiltered
	outcomeDuplicate
)

func (p *Poller) processEntry(ctx context.Context, feedURL string, company *string, entry Entry) (entryOutcome, Alert, error) {
	label := Classify(entry.Title, entry.Summary)

	if ok, reason := p.filter.Run(label); !ok {
		slog.Debug("Entry filtered", "feed", feedURL, "filing_id", entry.ID, "reason", reason)
		return outcomeFiltered, Alert{}, nil
	}

	alert := Alert{
		FeedURL:     feedURL,
		Company:     company,
		FilingID:    entry.ID,
		FilingType:  label,
		Title:       entry.Title,
		Summary:     entry.Summary,
		Link:        entry.Link,
		PublishedAt: entry.UpdatedAt,
		ScrapedAt:   p.now(),
	}

	if p.opts.IncludeFullFiling && p.enricher != nil && entry.Link != "" {
		text, err := p.enricher.Enrich(ctx, entry.Link)
		if err != nil {
			slog.Warn("Full filing fetch failed", "feed", feedURL, "filing_id", entry.ID, "url", entry.Link, "error", err)
		} else {
			alert.FullFilingText = &text
		}
	}

	inserted, err := p.sink.SaveAlert(ctx, alert)
	if err != nil {
		return outcomeEmitted, Alert{}, fmt.Errorf("failed to save alert: %w", err)
	}
	if !inserted {
		slog.Debug("Alert already recorded", "feed", feedURL, "filing_id", entry.ID)
		return outcomeDuplicate, Alert{}, nil
	}

	if p.dispatcher != nil {
		p.dispatcher.Dispatch(alert.Notification())
	}

	return outcomeEmitted, alert, nil
}

// SinkChain writes to a primary sink and mirrors newly inserted alerts to
// secondary sinks. Mirror failures are logged only.
type SinkChain struct {
	primary AlertSink
	mirrors []AlertSink
}

func NewSinkChain(primary AlertSink, mirrors ...AlertSink) *SinkChain {
	return &SinkChain{primary: primary, mirrors: mirrors}
}

func (c *SinkChain) SaveAlert(ctx context.Context, alert Alert) (bool, error) {
	inserted, err := c.primary.SaveAlert(ctx, alert)
	if err != nil || !inserted {
		return inserted, err
	}

	for _, m := range c.mirrors {
		if _, err := m.SaveAlert(ctx, alert); err != nil {
			slog.Warn("Alert mirror failed", "feed", alert.FeedURL, "filing_id", alert.FilingID, "error", err)
		}
	}
	return true, nil
}
