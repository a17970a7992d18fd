package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Normalize converts a raw entry into the canonical entry shape.
func Normalize(raw RawEntry) Entry {
	entry := Entry{
		Title:     strings.TrimSpace(raw.Title),
		Link:      strings.TrimSpace(raw.Link),
		UpdatedAt: parseTimestamp(raw.Timestamp),
		Summary:   strings.TrimSpace(raw.Summary),
		Content:   strings.TrimSpace(raw.Content),
	}
	entry.ID = ResolveID(raw.ID, entry.Link, entry.Title, entry.Summary)
	return entry
}

func NormalizeAll(raws []RawEntry) []Entry {
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, Normalize(raw))
	}
	return entries
}

// ResolveID returns the source id, else the link, else a SHA-256 digest of
// title followed by summary. The result is never empty.
func ResolveID(sourceID, link, title, summary string) string {
	if id := strings.TrimSpace(sourceID); id != "" {
		return id
	}
	if link = strings.TrimSpace(link); link != "" {
		return link
	}
	return contentHash(strings.TrimSpace(title) + strings.TrimSpace(summary))
}

func contentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// FormatTimestamp renders t as ISO-8601, or "" for nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
