package driven

import (
	"context"

	"github.com/dshestakov/aichat/internal/domain/model"
)

// MessageStore defines the driven port for chat-history persistence.
// Store failures are fatal to the operation that hit them: implementations
// wrap and return them, never swallow them.
type MessageStore interface {
	// Append stores one completed chat turn and returns its assigned id.
	Append(ctx context.Context, msg model.Message) (int64, error)

	// List returns the full history in chronological order (ascending id).
	List(ctx context.Context) ([]model.Message, error)

	// ListNewestFirst returns the full history in reverse chronological
	// order, the order the display surface wants.
	ListNewestFirst(ctx context.Context) ([]model.Message, error)

	// Clear removes all stored turns. Irreversible; confirmation is the
	// caller's responsibility.
	Clear(ctx context.Context) error
}
