package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS or Atom document into raw entries, in document order.
func (p *Parser) Run(data []byte) ([]RawEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	shape := ShapeRSS
	if feed.FeedType == "atom" {
		shape = ShapeAtom
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.rawEntry(shape, item))
	}

	return entries, nil
}

func (p *Parser) rawEntry(shape Shape, item *gofeed.Item) RawEntry {
	return RawEntry{
		Shape: shape,
		ID:    item.GUID,
		Link:  p.link(item),
		Title: item.Title,
		// Atom entries carry <updated>, RSS items only <pubDate>
		Timestamp: cmp.Or(item.Updated, item.Published),
		Summary:   item.Description,
		Content:   item.Content,
	}
}

func (p *Parser) link(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
