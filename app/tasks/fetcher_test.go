package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
		w.Write([]byte("<feed/>"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "Filing Comb/1.0 admin@example.com", 10, time.Second)

	data, contentType, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<feed/>" {
		t.Errorf("Unexpected body: %s", data)
	}
	if contentType != "application/atom+xml; charset=utf-8" {
		t.Errorf("Unexpected content type: %s", contentType)
	}
	if userAgent != "Filing Comb/1.0 admin@example.com" {
		t.Errorf("Expected user agent to be sent, got '%s'", userAgent)
	}
}

func TestHTTPFetcher_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "test", 0, 0)

	if _, _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 403 response")
	}
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	fetcher := NewHTTPFetcher(nil, "test", 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := fetcher.Fetch(ctx, "http://127.0.0.1:1/"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestHTTPFetcher_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "test", 10, 0)

	started := time.Now()
	for i := 0; i < 3; i++ {
		if _, _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}

	// burst of one, then 100ms per request
	if elapsed := time.Since(started); elapsed < 150*time.Millisecond {
		t.Errorf("Expected requests to be spaced out, took %v", elapsed)
	}
}
