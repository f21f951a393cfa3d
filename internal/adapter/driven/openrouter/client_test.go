package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshestakov/aichat/internal/adapter/driven/openrouter"
	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *openrouter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return openrouter.NewClientWithHTTPClient(server.Client(), server.URL, "test-key")
}

func modelsHandler(calls *atomic.Int64, models ...map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": models})
	})
}

func TestValidateCredential(t *testing.T) {
	withKey := openrouter.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:0", "k")
	assert.NoError(t, withKey.ValidateCredential())

	t.Setenv("OPENROUTER_API_KEY", "")
	noKey := openrouter.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:0", "")
	assert.ErrorIs(t, noKey.ValidateCredential(), driven.ErrMissingCredential)
}

func TestNewClient_ExplicitKeyBeatsEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer explicit-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	t.Cleanup(server.Close)

	client := openrouter.NewClient("explicit-key", server.URL)
	client.ListModels(context.Background(), true)
}

func TestListModels_ParsesAndCaches(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, modelsHandler(&calls,
		map[string]string{"id": "deepseek/deepseek-coder", "name": "DeepSeek Coder"},
		map[string]string{"id": "anthropic/claude-3-sonnet", "name": "Claude 3 Sonnet"},
	))

	first := client.ListModels(context.Background(), false)
	require.Len(t, first, 2)
	assert.Equal(t, "deepseek/deepseek-coder", first[0].ID)
	assert.Equal(t, "DeepSeek Coder", first[0].Name)

	second := client.ListModels(context.Background(), false)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "second call must be served from cache")
}

func TestListModels_ForceRefreshBypassesCache(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, modelsHandler(&calls,
		map[string]string{"id": "m1", "name": "M1"},
	))

	client.ListModels(context.Background(), false)
	client.ListModels(context.Background(), true)
	assert.Equal(t, int64(2), calls.Load())
}

func TestListModels_FallbackOnRemoteFailure(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	models := client.ListModels(context.Background(), false)
	assert.Equal(t, model.FallbackModels(), models)

	// A failure must not poison the cache: the next call retries remotely.
	client.ListModels(context.Background(), false)
	assert.Equal(t, int64(2), calls.Load())
}

func TestListModels_FallbackWithoutCredential(t *testing.T) {
	client := openrouter.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:0", "")

	models := client.ListModels(context.Background(), false)
	assert.Equal(t, model.FallbackModels(), models)
}

func TestSendMessage_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "hello", body.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "hi there"}},
			},
			"usage": map[string]int{"total_tokens": 17},
		})
	}))

	result, err := client.SendMessage(context.Background(), "hello", "gpt-3.5-turbo")
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, "hi there", result.Content)
	assert.Equal(t, 17, result.TokensUsed)
	assert.Equal(t, "gpt-3.5-turbo", result.Model)
}

func TestSendMessage_EmptyModelResolvesToFirstListed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"id": "first-model", "name": "First"},
					{"id": "second-model", "name": "Second"},
				},
			})
		case "/chat/completions":
			var body struct {
				Model string `json:"model"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "first-model", body.Model)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	result, err := client.SendMessage(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "first-model", result.Model)
}

func TestSendMessage_EmptyModelListUsesDefault(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		case "/chat/completions":
			var body struct {
				Model string `json:"model"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, model.DefaultModelID, body.Model)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	result, err := client.SendMessage(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultModelID, result.Model)
}

func TestSendMessage_MissingCredential(t *testing.T) {
	client := openrouter.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:0", "")

	_, err := client.SendMessage(context.Background(), "hello", "m")
	assert.ErrorIs(t, err, driven.ErrMissingCredential)
}

func TestSendMessage_RemoteErrorsAsData(t *testing.T) {
	tests := []struct {
		name        string
		remoteError string
		wantErr     string
	}{
		{
			name:        "region restriction is translated",
			remoteError: "Model blocked: unsupported_country_region_territory",
			wantErr:     "The selected model is not available in your region. Please choose another model.",
		},
		{
			name:        "temporary outage is translated",
			remoteError: "upstream is temporarily unavailable",
			wantErr:     "The model is temporarily unavailable. Please choose another model.",
		},
		{
			name:        "other errors pass through verbatim",
			remoteError: "insufficient credits",
			wantErr:     "insufficient credits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"message": tt.remoteError},
				})
			}))

			result, err := client.SendMessage(context.Background(), "hello", "m")
			require.NoError(t, err, "remote failure must come back as data, not as an error")
			assert.True(t, result.Failed())
			assert.Equal(t, tt.wantErr, result.Err)
		})
	}
}

func TestGetBalance_ComputesCreditsMinusUsage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/credits", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]float64{"total_credits": 10.0, "total_usage": 7.5},
		})
	}))

	assert.Equal(t, "$2.50", client.GetBalance(context.Background(), true))
}

func TestGetBalance_SentinelOnFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))

	assert.Equal(t, driven.BalanceUnavailable, client.GetBalance(context.Background(), true))
}

func TestGetBalance_SentinelWithoutCredential(t *testing.T) {
	client := openrouter.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:0", "")

	assert.Equal(t, driven.BalanceUnavailable, client.GetBalance(context.Background(), true))
}
