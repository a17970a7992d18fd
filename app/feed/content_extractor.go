package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run returns the readable text of an HTML document. Documents readability
// cannot make sense of (EDGAR index pages, bare tables) fall back to the text
// of the whole body.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err == nil {
		if text := collapseWhitespace(article.TextContent); text != "" {
			slog.Debug("Content extracted successfully",
				"title", article.Title,
				"content_length", len(text))
			return text, nil
		}
	}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if docErr != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", docErr)
	}
	doc.Find("script, style, noscript").Remove()

	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}
	return text, nil
}

// collapseWhitespace squeezes runs of blanks within lines and drops empty
// lines.
func collapseWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
