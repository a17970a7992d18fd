package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
	"github.com/lysyi3m/filing-comb/app/tasks"
)

const testFeedURL = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=0000320193&output=atom"

type fakeScheduler struct {
	enqueued int
}

func (s *fakeScheduler) Start()                                     {}
func (s *fakeScheduler) Stop()                                      {}
func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error { return nil }
func (s *fakeScheduler) EnqueueAll() (int, int) {
	s.enqueued++
	return 3, 1
}

type testServer struct {
	handler   http.Handler
	scheduler *fakeScheduler
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	feedRepo := database.NewFeedRepository(db)
	alertRepo := database.NewAlertRepository(db)
	cursors := feed.NewCursorStore(database.NewKVRepository(db))

	company := "0000320193"
	if err := feedRepo.UpsertFeed(ctx, testFeedURL, &company); err != nil {
		t.Fatal(err)
	}
	if err := feedRepo.RecordPoll(ctx, testFeedURL, 2, 2, nil); err != nil {
		t.Fatal(err)
	}
	if err := cursors.Save(ctx, feed.Cursor{FeedURL: testFeedURL, LastSeenID: "acc-2", UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}

	scraped := time.Date(2024, 5, 3, 16, 35, 0, 0, time.UTC)
	for i, label := range []string{"8-K", "10-Q"} {
		alert := feed.Alert{
			FeedURL:    testFeedURL,
			Company:    &company,
			FilingID:   "acc-" + string(rune('1'+i)),
			FilingType: &label,
			Title:      label + " filing",
			Link:       "https://www.sec.gov/Archives/" + label,
			ScrapedAt:  scraped.Add(time.Duration(i) * time.Minute),
		}
		if _, err := alertRepo.SaveAlert(ctx, alert); err != nil {
			t.Fatal(err)
		}
	}

	scheduler := &fakeScheduler{}
	handler := NewHandler(feedRepo, alertRepo, cursors, scheduler, "test")

	return &testServer{
		handler:   NewServer(handler, apiKey),
		scheduler: scheduler,
	}
}

func (s *testServer) do(t *testing.T, method, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["status"] != "ok" || body["feeds"] != float64(1) {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, "")

	body := decode(t, s.do(t, http.MethodGet, "/stats", ""))
	if body["feeds"] != float64(1) || body["alerts"] != float64(2) || body["failing_feeds"] != float64(0) {
		t.Errorf("Unexpected stats: %v", body)
	}
	if body["last_polled_at"] == nil {
		t.Error("Expected last poll time")
	}
}

func TestAlertsFeed(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/alerts.xml?type=10-Q", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("Unexpected content type: %s", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 item, got %s", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "<category>10-Q</category>") {
		t.Error("Expected 10-Q item in feed")
	}
}

func TestAPI_Auth(t *testing.T) {
	s := newTestServer(t, "secret")

	if w := s.do(t, http.MethodGet, "/api/feeds", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/feeds", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/feeds", "secret"); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected bearer token to be accepted, got %d", w.Code)
	}

	if w := s.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("Expected health to stay public, got %d", w.Code)
	}
}

func TestAPI_ListFeeds(t *testing.T) {
	s := newTestServer(t, "")

	body := decode(t, s.do(t, http.MethodGet, "/api/feeds", ""))
	if body["total"] != float64(1) {
		t.Fatalf("Expected 1 feed, got %v", body["total"])
	}

	feeds := body["feeds"].([]any)
	info := feeds[0].(map[string]any)
	if info["key"] != feed.FeedKey(testFeedURL) || info["company"] != "0000320193" {
		t.Errorf("Unexpected feed info: %v", info)
	}
}

func TestAPI_GetCursor(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/feeds/"+feed.FeedKey(testFeedURL)+"/cursor", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["lastSeenId"] != "acc-2" {
		t.Errorf("Expected cursor 'acc-2', got %v", body["lastSeenId"])
	}

	if w := s.do(t, http.MethodGet, "/api/feeds/feed-cursor:unknown/cursor", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got %d", w.Code)
	}
}

func TestAPI_ListAlerts(t *testing.T) {
	s := newTestServer(t, "")

	body := decode(t, s.do(t, http.MethodGet, "/api/alerts", ""))
	if body["total"] != float64(2) {
		t.Errorf("Expected 2 alerts, got %v", body["total"])
	}

	alerts := body["alerts"].([]any)
	first := alerts[0].(map[string]any)
	if first["filingId"] != "acc-2" || first["filingType"] != "10-Q" {
		t.Errorf("Expected newest alert first, got %v", first)
	}
	if _, ok := first["fullFilingText"]; !ok {
		t.Error("Expected fullFilingText key to be present")
	}

	body = decode(t, s.do(t, http.MethodGet, "/api/alerts?type=8-K&limit=5", ""))
	if body["total"] != float64(1) {
		t.Errorf("Expected 1 8-K alert, got %v", body["total"])
	}

	body = decode(t, s.do(t, http.MethodGet, "/api/alerts?feed=https://other.example.com", ""))
	if body["total"] != float64(0) {
		t.Errorf("Expected no alerts for another feed, got %v", body["total"])
	}

	if w := s.do(t, http.MethodGet, "/api/alerts?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestAPI_TriggerPoll(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/poll", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	body := decode(t, w)
	if body["queued"] != float64(3) || body["skipped"] != float64(1) {
		t.Errorf("Unexpected poll response: %v", body)
	}
	if s.scheduler.enqueued != 1 {
		t.Errorf("Expected scheduler to be asked once, got %d", s.scheduler.enqueued)
	}
}
