package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
)

const atomTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Latest Filings - APPLE INC</title>
  <updated>2024-05-03T16:30:00-04:00</updated>
  <entry>
    <title>8-K - Current report</title>
    <link rel="alternate" type="text/html" href="%[1]s/doc/8k.htm"/>
    <summary type="html">Filed: 2024-05-02 AccNo: 0000320193-24-000061</summary>
    <updated>2024-05-02T16:30:00-04:00</updated>
    <id>urn:tag:sec.gov,2008:accession-number=0000320193-24-000061</id>
  </entry>
  <entry>
    <title>10-Q - Quarterly report [Sections 13 or 15(d)]</title>
    <link rel="alternate" type="text/html" href="%[1]s/doc/10q.htm"/>
    <summary type="html">Filed: 2024-05-03 AccNo: 0000320193-24-000069</summary>
    <updated>2024-05-03T16:30:00-04:00</updated>
    <id>urn:tag:sec.gov,2008:accession-number=0000320193-24-000069</id>
  </entry>
</feed>`

type testEnv struct {
	db        *database.DB
	feedRepo  *database.SQLFeedRepository
	alertRepo *database.SQLAlertRepository
	server    *httptest.Server
	pipeline  *Pipeline
}

// newTestEnv serves an EDGAR style Atom feed at /feed?CIK=0000320193 and a
// 500 at /broken, backed by a real SQLite database.
func newTestEnv(t *testing.T, filingTypes []string) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprintf(w, atomTemplate, server.URL)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	feedRepo := database.NewFeedRepository(db)
	alertRepo := database.NewAlertRepository(db)
	poller := feed.NewPoller(
		feed.NewCursorStore(database.NewKVRepository(db)),
		alertRepo, nil, nil,
		feed.NewTypeFilter(filingTypes),
		feed.PollerOptions{MaxEntriesPerFeed: 40},
	)

	return &testEnv{
		db:        db,
		feedRepo:  feedRepo,
		alertRepo: alertRepo,
		server:    server,
		pipeline: &Pipeline{
			Fetcher:  NewHTTPFetcher(server.Client(), "Filing Comb/test", 0, 0),
			Parser:   feed.NewParser(),
			Poller:   poller,
			FeedRepo: feedRepo,
		},
	}
}

func (e *testEnv) feedURL() string {
	return e.server.URL + "/feed?CIK=0000320193"
}

func (e *testEnv) brokenURL() string {
	return e.server.URL + "/broken"
}

// blockingFetcher holds every fetch until released
type blockingFetcher struct {
	inner   FeedFetcher
	started chan string
	release chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func newBlockingFetcher(inner FeedFetcher) *blockingFetcher {
	return &blockingFetcher{
		inner:   inner,
		started: make(chan string, 16),
		release: make(chan struct{}),
		calls:   make(map[string]int),
	}
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	f.started <- url
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
	return f.inner.Fetch(ctx, url)
}

func (f *blockingFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func alertIDs(alerts []feed.Alert) string {
	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.FilingID
	}
	return strings.Join(ids, ",")
}
