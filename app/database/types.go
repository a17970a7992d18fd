package database

import (
	"time"
)

// Feed is the poll bookkeeping row for one feed address
type Feed struct {
	FeedKey       string
	FeedURL       string
	Company       *string
	LastPolledAt  *time.Time
	LastSuccessAt *time.Time
	LastError     string
	EntryCount    int // entries seen in the last successful fetch
	AlertCount    int // alerts emitted over the feed's lifetime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type AlertQuery struct {
	FeedURL    string
	FilingType string
	Limit      int
}

const (
	DefaultAlertLimit = 50
	MaxAlertLimit     = 500
)
