package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lysyi3m/filing-comb/app/feed"
)

type stubFetcher struct {
	data        string
	contentType string
	err         error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return []byte(f.data), f.contentType, f.err
}

func TestFullTextEnricher_Enrich(t *testing.T) {
	tests := []struct {
		name        string
		fetcher     *stubFetcher
		contains    string
		expectError bool
	}{
		{
			name: "html document",
			fetcher: &stubFetcher{
				data:        "<html><body><p>ITEM 2.02 Results of Operations and Financial Condition</p></body></html>",
				contentType: "text/html; charset=utf-8",
			},
			contains: "Results of Operations",
		},
		{
			name:     "missing content type is treated as html",
			fetcher:  &stubFetcher{data: "<html><body><p>Exhibit 99.1 press release</p></body></html>"},
			contains: "Exhibit 99.1",
		},
		{
			name:     "plain text submission",
			fetcher:  &stubFetcher{data: "  <SEC-DOCUMENT>0000320193-24-000069.txt\n", contentType: "text/plain"},
			contains: "<SEC-DOCUMENT>0000320193-24-000069.txt",
		},
		{
			name:        "binary document",
			fetcher:     &stubFetcher{data: "%PDF-1.7", contentType: "application/pdf"},
			expectError: true,
		},
		{
			name:        "fetch failure",
			fetcher:     &stubFetcher{err: errors.New("HTTP error: 404")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher := NewFullTextEnricher(tt.fetcher, feed.NewContentExtractor())

			text, err := enricher.Enrich(context.Background(), "https://www.sec.gov/Archives/doc")
			if tt.expectError {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !strings.Contains(text, tt.contains) {
				t.Errorf("Expected text to contain %q, got %q", tt.contains, text)
			}
		})
	}
}
