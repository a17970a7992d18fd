package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/filing-comb/app/feed"
)

const defaultTimeout = 10 * time.Second

// Webhook posts notifications to a URL in the background. Delivery failures
// are logged and never reach the poll that produced the alert.
type Webhook struct {
	client    *http.Client
	url       string
	userAgent string
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewWebhook(client *http.Client, url, userAgent string) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{
		client:    client,
		url:       url,
		userAgent: userAgent,
		timeout:   defaultTimeout,
	}
}

// Dispatch starts delivery and returns immediately.
func (w *Webhook) Dispatch(n feed.Notification) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := w.Send(ctx, n); err != nil {
			slog.Warn("Webhook delivery failed", "url", w.url, "filing_id", n.FilingID, "error", err)
			return
		}
		slog.Debug("Webhook delivered", "url", w.url, "filing_id", n.FilingID)
	}()
}

// Send delivers one notification synchronously.
func (w *Webhook) Send(ctx context.Context, n feed.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Wait blocks until every dispatched delivery has finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

var _ feed.Dispatcher = (*Webhook)(nil)
