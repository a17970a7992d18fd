package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KeyValueStore is the durable store cursors are persisted in.
type KeyValueStore interface {
	// Get returns the stored value, or ok == false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

// StoredCursor is a cursor value as read from the store. Older writers stored
// the last seen id as a bare string; current writers store a structured
// document.
type StoredCursor interface {
	resolve(feedKey, feedURL string) Cursor
}

type LegacyCursor string

type StructuredCursor struct {
	LastSeenID *string   `json:"lastSeenId"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Feed       string    `json:"feed"`
}

func (c LegacyCursor) resolve(feedKey, feedURL string) Cursor {
	return Cursor{
		FeedKey:    feedKey,
		LastSeenID: string(c),
		FeedURL:    feedURL,
	}
}

func (c StructuredCursor) resolve(feedKey, feedURL string) Cursor {
	cursor := Cursor{
		FeedKey:   feedKey,
		UpdatedAt: c.UpdatedAt,
		FeedURL:   feedURL,
	}
	if c.LastSeenID != nil {
		cursor.LastSeenID = *c.LastSeenID
	}
	if c.Feed != "" {
		cursor.FeedURL = c.Feed
	}
	return cursor
}

// DecodeCursor reads a stored value in either of its historic forms.
func DecodeCursor(value string) (StoredCursor, error) {
	trimmed := strings.TrimSpace(value)

	if strings.HasPrefix(trimmed, "{") {
		var structured StructuredCursor
		if err := json.Unmarshal([]byte(trimmed), &structured); err != nil {
			return nil, fmt.Errorf("failed to decode cursor: %w", err)
		}
		return structured, nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return LegacyCursor(s), nil
		}
	}

	return LegacyCursor(trimmed), nil
}

func EncodeCursor(c Cursor) (string, error) {
	stored := StructuredCursor{
		UpdatedAt: c.UpdatedAt.UTC(),
		Feed:      c.FeedURL,
	}
	if c.LastSeenID != "" {
		id := c.LastSeenID
		stored.LastSeenID = &id
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return string(data), nil
}

// CursorStore reads and writes feed cursors through a KeyValueStore.
type CursorStore struct {
	kv KeyValueStore
}

func NewCursorStore(kv KeyValueStore) *CursorStore {
	return &CursorStore{kv: kv}
}

// Load returns the cursor for feedURL. A feed that has never been polled
// yields a cursor with an empty LastSeenID.
func (s *CursorStore) Load(ctx context.Context, feedURL string) (Cursor, error) {
	key := FeedKey(feedURL)
	empty := Cursor{FeedKey: key, FeedURL: feedURL}

	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return empty, fmt.Errorf("failed to read cursor: %w", err)
	}
	if !ok {
		return empty, nil
	}

	stored, err := DecodeCursor(value)
	if err != nil {
		return empty, err
	}
	return stored.resolve(key, feedURL), nil
}

func (s *CursorStore) Save(ctx context.Context, c Cursor) error {
	if c.FeedKey == "" {
		c.FeedKey = FeedKey(c.FeedURL)
	}

	value, err := EncodeCursor(c)
	if err != nil {
		return err
	}

	if err := s.kv.Put(ctx, c.FeedKey, value); err != nil {
		return fmt.Errorf("failed to write cursor: %w", err)
	}
	return nil
}
