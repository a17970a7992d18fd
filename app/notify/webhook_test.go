package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/filing-comb/app/feed"
)

func testNotification() feed.Notification {
	label := "8-K"
	published := time.Date(2024, 5, 2, 20, 30, 0, 0, time.UTC)
	return feed.Notification{
		FilingID:    "urn:tag:sec.gov,2008:accession-number=0000320193-24-000061",
		FilingType:  &label,
		Title:       "8-K - Current report",
		Link:        "https://www.sec.gov/Archives/edgar/data/320193/000032019324000061-index.htm",
		PublishedAt: &published,
		FeedURL:     "https://www.sec.gov/cgi-bin/browse-edgar?CIK=0000320193&output=atom",
	}
}

func TestWebhook_Send(t *testing.T) {
	var payload map[string]any
	var userAgent, contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	webhook := NewWebhook(server.Client(), server.URL, "Filing Comb/test")

	if err := webhook.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if userAgent != "Filing Comb/test" {
		t.Errorf("Expected user agent to be sent, got '%s'", userAgent)
	}
	if contentType != "application/json" {
		t.Errorf("Expected JSON content type, got '%s'", contentType)
	}

	for _, key := range []string{"filingId", "filingType", "title", "link", "publishedAt", "feedUrl"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("Expected payload key %q", key)
		}
	}
	if len(payload) != 6 {
		t.Errorf("Expected exactly 6 payload keys, got %d", len(payload))
	}
	if payload["filingType"] != "8-K" {
		t.Errorf("Expected filingType '8-K', got %v", payload["filingType"])
	}
}

func TestWebhook_SendNullFields(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	n := testNotification()
	n.FilingType = nil
	n.PublishedAt = nil

	if err := NewWebhook(nil, server.URL, "").Send(context.Background(), n); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, ok := payload["filingType"]; !ok || v != nil {
		t.Errorf("Expected filingType to be null, got %v", v)
	}
	if v, ok := payload["publishedAt"]; !ok || v != nil {
		t.Errorf("Expected publishedAt to be null, got %v", v)
	}
}

func TestWebhook_SendNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewWebhook(server.Client(), server.URL, "").Send(context.Background(), testNotification())
	if err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestWebhook_DispatchDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		delivered.Add(1)
	}))
	defer server.Close()

	webhook := NewWebhook(server.Client(), server.URL, "")

	done := make(chan struct{})
	go func() {
		webhook.Dispatch(testNotification())
		webhook.Dispatch(testNotification())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on delivery")
	}

	close(release)
	webhook.Wait()

	if delivered.Load() != 2 {
		t.Errorf("Expected 2 deliveries, got %d", delivered.Load())
	}
}

func TestWebhook_DispatchSwallowsFailures(t *testing.T) {
	webhook := NewWebhook(nil, "http://127.0.0.1:1/unreachable", "")
	webhook.timeout = time.Second

	webhook.Dispatch(testNotification())
	webhook.Wait()
}
