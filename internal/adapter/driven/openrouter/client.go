// Package openrouter implements the ChatClient port against an
// OpenRouter-style model-aggregation HTTP API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// DefaultBaseURL is the vendor endpoint used when no override is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Compile-time interface satisfaction check.
var _ driven.ChatClient = (*Client)(nil)

// Client implements the driven.ChatClient port. It is stateless per call
// except for the in-memory model-list cache, which is an explicit field
// scoped to the instance so separate clients (e.g. under test) do not
// interfere. No call is ever retried automatically: a failed attempt is
// surfaced or falls back immediately.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	models []model.ModelInfo
}

// NewClient creates a Client. An explicit apiKey takes precedence over the
// OPENROUTER_API_KEY environment variable; an empty baseURL falls back to
// DefaultBaseURL. GET responses are cached at the transport level via
// httpcache.
func NewClient(apiKey, baseURL string) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := httpcache.NewMemoryCacheTransport().Client()
	httpClient.Timeout = 30 * time.Second

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL. Intended for tests, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ValidateCredential fails with driven.ErrMissingCredential when the client
// holds no API key.
func (c *Client) ValidateCredential() error {
	if c.apiKey == "" {
		return driven.ErrMissingCredential
	}
	return nil
}

// ListModels returns the available models, serving the per-instance cache
// unless it is empty or forceRefresh is set. On any remote or parse failure
// it logs and returns the fixed fallback list instead of an error: the chat
// surface must always have a non-empty list to offer. Failures do not
// populate the cache, so a later call retries the remote list.
func (c *Client) ListModels(ctx context.Context, forceRefresh bool) []model.ModelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.models) > 0 && !forceRefresh {
		return append([]model.ModelInfo(nil), c.models...)
	}

	models, err := c.fetchModels(ctx)
	if err != nil {
		slog.Warn("model list fetch failed, serving fallback list",
			"error", err, "fallback_count", len(model.FallbackModels()))
		return model.FallbackModels()
	}

	c.models = models
	slog.Debug("model list refreshed", "count", len(models))
	return append([]model.ModelInfo(nil), c.models...)
}

// fetchModels performs the remote list call. Kept as an explicit two-branch
// result so the fallback decision stays at the ListModels call site.
func (c *Client) fetchModels(ctx context.Context) ([]model.ModelInfo, error) {
	if err := c.ValidateCredential(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list models: %s", remoteErrorText(resp))
	}

	var payload struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	models := make([]model.ModelInfo, 0, len(payload.Data))
	for _, m := range payload.Data {
		models = append(models, model.ModelInfo{ID: m.ID, Name: m.Name})
	}
	return models, nil
}

// SendMessage issues one chat-completion call. Remote and transport
// failures come back as data in the result's Err field; the only Go error
// is a missing credential.
func (c *Client) SendMessage(ctx context.Context, text, modelID string) (model.ChatResult, error) {
	if err := c.ValidateCredential(); err != nil {
		return model.ChatResult{}, err
	}

	if modelID == "" {
		if models := c.ListModels(ctx, false); len(models) > 0 {
			modelID = models[0].ID
		} else {
			modelID = model.DefaultModelID
		}
	}

	slog.Debug("sending message", "model", modelID, "length", len(text))
	result := model.ChatResult{Model: modelID}

	body, err := json.Marshal(map[string]any{
		"model": modelID,
		"messages": []map[string]string{
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		result.Err = err.Error()
		return result, nil
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(body))
	if err != nil {
		result.Err = err.Error()
		return result, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("chat completion request failed", "model", modelID, "error", err)
		result.Err = translateError(err.Error())
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := remoteErrorText(resp)
		slog.Error("chat completion rejected", "model", modelID, "status", resp.StatusCode, "error", msg)
		result.Err = translateError(msg)
		return result, nil
	}

	var payload completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		result.Err = fmt.Sprintf("decode completion: %v", err)
		return result, nil
	}
	// Some aggregated providers report failures inside a 200 body.
	if payload.Error != nil && payload.Error.Message != "" {
		result.Err = translateError(payload.Error.Message)
		return result, nil
	}
	if len(payload.Choices) == 0 {
		result.Err = "completion response contained no choices"
		return result, nil
	}

	result.Content = payload.Choices[0].Message.Content
	result.TokensUsed = payload.Usage.TotalTokens
	slog.Debug("completion received", "model", modelID, "tokens", result.TokensUsed)
	return result, nil
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GetBalance returns total_credits minus total_usage formatted "$X.XX", or
// the driven.BalanceUnavailable sentinel on any failure so callers can
// render a fallback string without error handling.
func (c *Client) GetBalance(ctx context.Context, validate bool) string {
	if validate {
		if err := c.ValidateCredential(); err != nil {
			slog.Error("balance unavailable", "error", err)
			return driven.BalanceUnavailable
		}
	}

	balance, err := c.fetchBalance(ctx)
	if err != nil {
		slog.Error("balance request failed", "error", err, "api_key", redactKey(c.apiKey))
		return driven.BalanceUnavailable
	}
	return fmt.Sprintf("$%.2f", balance)
}

func (c *Client) fetchBalance(ctx context.Context) (float64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/credits", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get credits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("get credits: %s", remoteErrorText(resp))
	}

	var payload struct {
		Data struct {
			TotalCredits float64 `json:"total_credits"`
			TotalUsage   float64 `json:"total_usage"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode credits: %w", err)
	}
	return payload.Data.TotalCredits - payload.Data.TotalUsage, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// remoteErrorText extracts a human-readable message from a non-2xx
// response, preferring the JSON error envelope over the raw body.
func remoteErrorText(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
}

// translateError rewrites the two remote failure modes users actually hit
// into actionable explanations; everything else passes through verbatim.
func translateError(msg string) string {
	switch {
	case strings.Contains(msg, "unsupported_country_region_territory"):
		return "The selected model is not available in your region. Please choose another model."
	case strings.Contains(msg, "temporarily unavailable"):
		return "The model is temporarily unavailable. Please choose another model."
	}
	return msg
}

// redactKey shortens an API key for log output. Keys are never logged in full.
func redactKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
