package feed

import (
	"time"
)

// Feed entry types

// Shape is the wire layout an entry was read from.
type Shape string

const (
	ShapeRSS  Shape = "rss"  // item-oriented
	ShapeAtom Shape = "atom" // entry-oriented
)

// RawEntry is an entry as read from a feed document. Empty strings mean the
// field was absent.
type RawEntry struct {
	Shape     Shape
	ID        string
	Link      string
	Title     string
	Timestamp string
	Summary   string
	Content   string
}

type Entry struct {
	ID        string
	Title     string
	Link      string
	UpdatedAt *time.Time // nil when missing or unparseable
	Summary   string
	Content   string
}

// Cursor is the per-feed progress marker. An empty LastSeenID means the feed
// has never been polled (or its cursor could not be read).
type Cursor struct {
	FeedKey    string
	LastSeenID string
	UpdatedAt  time.Time
	FeedURL    string
}

// Alert is the output record emitted for an accepted new entry.
type Alert struct {
	FeedURL        string     `json:"feedUrl"`
	Company        *string    `json:"company"`
	FilingID       string     `json:"filingId"`
	FilingType     *string    `json:"filingType"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	Link           string     `json:"link"`
	PublishedAt    *time.Time `json:"publishedAt"`
	FullFilingText *string    `json:"fullFilingText"`
	ScrapedAt      time.Time  `json:"scrapedAt"`
}

// Notification is the webhook body sent for an emitted alert.
type Notification struct {
	FilingID    string     `json:"filingId"`
	FilingType  *string    `json:"filingType"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"publishedAt"`
	FeedURL     string     `json:"feedUrl"`
}

func (a Alert) Notification() Notification {
	return Notification{
		FilingID:    a.FilingID,
		FilingType:  a.FilingType,
		Title:       a.Title,
		Link:        a.Link,
		PublishedAt: a.PublishedAt,
		FeedURL:     a.FeedURL,
	}
}

// Run input types

// Input mirrors the YAML input file.
type Input struct {
	StartURLs           []string `yaml:"startUrls"`
	CIKOrTickerList     []string `yaml:"cikOrTickerList"`
	FilingTypes         []string `yaml:"filingTypes"`
	MaxRequestsPerCrawl int      `yaml:"maxRequestsPerCrawl"`
	MaxEntriesPerFeed   int      `yaml:"maxEntriesPerFeed"`
	IncludeFullFiling   bool     `yaml:"includeFullFiling"`
	WebhookURL          string   `yaml:"webhookUrl"`
	UserAgent           string   `yaml:"userAgent"`
}
