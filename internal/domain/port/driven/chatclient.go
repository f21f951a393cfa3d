package driven

import (
	"context"
	"errors"

	"github.com/dshestakov/aichat/internal/domain/model"
)

// ErrMissingCredential is returned by chat-client operations that require an
// API key when none is configured. It is fatal to the attempted operation
// and is never retried.
var ErrMissingCredential = errors.New("api key not provided")

// BalanceUnavailable is the sentinel returned by GetBalance on any failure,
// so callers can render a fallback string without branching on an error.
const BalanceUnavailable = "unavailable"

// ChatClient defines the driven port for the remote model-aggregation API.
// Remote failures on the primary chat path come back as data inside
// model.ChatResult; only a missing credential surfaces as a Go error.
type ChatClient interface {
	// ValidateCredential fails with ErrMissingCredential when no API key
	// is set. Every remote-calling operation invokes it first.
	ValidateCredential() error

	// ListModels returns the available models. The result is cached per
	// client instance; forceRefresh bypasses the cache. On remote failure
	// it falls back to model.FallbackModels() and never errors.
	ListModels(ctx context.Context, forceRefresh bool) []model.ModelInfo

	// SendMessage issues one chat-completion call. An empty modelID is
	// resolved to the first listed model, or model.DefaultModelID when the
	// list is empty. Remote errors are carried in the result's Err field.
	SendMessage(ctx context.Context, text, modelID string) (model.ChatResult, error)

	// GetBalance returns the remaining account credit formatted "$X.XX",
	// or BalanceUnavailable on any failure. When validate is true a
	// missing API key also yields the sentinel.
	GetBalance(ctx context.Context, validate bool) string
}
