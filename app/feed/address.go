package feed

import (
	"net/url"
	"strings"
)

const cursorKeyPrefix = "feed-cursor:"

// FeedKey derives the cursor store key for a feed address.
func FeedKey(feedURL string) string {
	return cursorKeyPrefix + contentHash(feedURL)
}

// CompanyFromURL extracts the company identifier from an EDGAR style feed
// address (the CIK query parameter, or a company parameter). Returns nil when
// the address carries neither.
func CompanyFromURL(feedURL string) *string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil
	}

	query := u.Query()
	for _, name := range []string{"cik", "company"} {
		for key, values := range query {
			if !strings.EqualFold(key, name) {
				continue
			}
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					return &v
				}
			}
		}
	}
	return nil
}

// ResolveFeedURLs builds the feed set from explicit addresses plus one
// templated address per identifier. {id} in template is replaced by the
// escaped identifier. Duplicates are dropped, order is kept.
func ResolveFeedURLs(startURLs, identifiers []string, template string) []string {
	seen := make(map[string]bool)
	var urls []string

	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	for _, u := range startURLs {
		add(u)
	}

	if template != "" {
		for _, id := range identifiers {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			add(strings.ReplaceAll(template, "{id}", url.QueryEscape(id)))
		}
	}

	return urls
}
