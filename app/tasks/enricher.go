package tasks

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/lysyi3m/filing-comb/app/feed"
)

// FullTextEnricher downloads the document behind an alert link and reduces
// it to plain text.
type FullTextEnricher struct {
	fetcher   FeedFetcher
	extractor *feed.ContentExtractor
}

func NewFullTextEnricher(fetcher FeedFetcher, extractor *feed.ContentExtractor) *FullTextEnricher {
	return &FullTextEnricher{fetcher: fetcher, extractor: extractor}
}

func (e *FullTextEnricher) Enrich(ctx context.Context, link string) (string, error) {
	data, contentType, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", err
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// EDGAR serves some documents without a Content-Type
		mediaType = "text/html"
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return e.extractor.Run(data)
	case strings.HasPrefix(mediaType, "text/"):
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("empty document")
		}
		return text, nil
	default:
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
}

var _ feed.Enricher = (*FullTextEnricher)(nil)
