// Package notify posts close summaries to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// maxContentRunes matches the message limit of Discord-style webhooks.
const maxContentRunes = 2000

type Webhook struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

type webhookPayload struct {
	Content string `json:"content"`
}

func NewWebhook(url string, timeout time.Duration, logger *slog.Logger, client *http.Client) *Webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Webhook{url: strings.TrimSpace(url), http: client, log: logger}
}

func (w *Webhook) Configured() bool {
	return w.url != ""
}

// Notify posts content as {"content": ...}. Without a URL it logs a warning
// and returns nil.
func (w *Webhook) Notify(ctx context.Context, content string) error {
	if !w.Configured() {
		w.log.Warn("webhook url not configured; skipping notification")
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("notification content is required")
	}

	raw, err := json.Marshal(webhookPayload{Content: truncate(content, maxContentRunes)})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	w.log.Info("webhook notification sent", slog.Int("status", resp.StatusCode))
	return nil
}

func truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
