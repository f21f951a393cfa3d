// Package telegram implements the Notifier port against the Telegram Bot
// API sendMessage endpoint.
package telegram

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

	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// DefaultAPIURL is the Telegram Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier delivers one-shot text notifications through a Telegram bot.
// Delivery is best effort and never retried; the bot token and API URL are
// configuration, not user-facing.
type Notifier struct {
	botToken   string
	apiURL     string
	httpClient *http.Client
}

// NewNotifier creates a Notifier. An empty apiURL falls back to
// DefaultAPIURL. An empty botToken is allowed: every Notify call then logs
// and returns nil, since notifications are a side channel and must never
// block the primary flow.
func NewNotifier(botToken, apiURL string) *Notifier {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Notifier{
		botToken:   botToken,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewNotifierWithHTTPClient creates a Notifier with a custom http.Client.
// Intended for tests.
func NewNotifierWithHTTPClient(httpClient *http.Client, botToken, apiURL string) *Notifier {
	n := NewNotifier(botToken, apiURL)
	n.httpClient = httpClient
	return n
}

// Notify sends text to the given chat. A missing bot token or chat id is
// logged and swallowed here; transport and API failures are returned so the
// caller owns the swallow-and-log policy.
func (n *Notifier) Notify(ctx context.Context, chatID, text string) error {
	if n.botToken == "" || chatID == "" {
		slog.Warn("notification skipped: bot token or chat id not configured")
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send notification: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	slog.Info("notification delivered", "chat_id", chatID, "length", len(text))
	return nil
}
