// Package notify delivers trade notifications to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notifier delivers a text notification.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// Webhook posts notifications as JSON to a webhook URL. The payload
// shape matches Discord-compatible webhooks.
type Webhook struct {
	url  string
	http *http.Client
}

// WebhookOption customizes a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) WebhookOption {
	return func(w *Webhook) { w.http = h }
}

// NewWebhook builds a webhook notifier for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Send posts the text to the webhook.
func (w *Webhook) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, body)
	}
	return nil
}

var _ Notifier = (*Webhook)(nil)
var _ Notifier = Nop{}
