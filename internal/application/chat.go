package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// ChatService owns the persistent conversation history and runs complete
// chat turns against the current chat client. The message store is the
// system of record: every finished turn lands there, failed ones included.
type ChatService struct {
	messages driven.MessageStore
	clients  *ChatClientProvider
}

// NewChatService creates a ChatService.
func NewChatService(messages driven.MessageStore, clients *ChatClientProvider) *ChatService {
	return &ChatService{messages: messages, clients: clients}
}

// SendTurn runs one chat turn: it sends text to the resolved model and
// appends the outcome to the history. A remote failure is recorded as a
// turn with the error text as the response and zero tokens, matching what
// the user sees. The stored record is returned. Store failures are fatal to
// the turn and propagate.
func (s *ChatService) SendTurn(ctx context.Context, text, modelID string) (model.Message, error) {
	client := s.clients.Get()
	if client == nil {
		return model.Message{}, driven.ErrMissingCredential
	}

	result, err := client.SendMessage(ctx, text, modelID)
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		Model:       result.Model,
		UserMessage: text,
		CreatedAt:   time.Now().UTC(),
	}
	if result.Failed() {
		slog.Error("chat turn failed", "model", result.Model, "error", result.Err)
		msg.AIResponse = "Error: " + result.Err
		msg.TokensUsed = 0
	} else {
		msg.AIResponse = result.Content
		msg.TokensUsed = result.TokensUsed
	}

	id, err := s.messages.Append(ctx, msg)
	if err != nil {
		return model.Message{}, err
	}
	msg.ID = id
	return msg, nil
}

// SaveMessage appends one completed turn with the current timestamp.
func (s *ChatService) SaveMessage(ctx context.Context, modelID, userMessage, aiResponse string, tokensUsed int) error {
	_, err := s.messages.Append(ctx, model.Message{
		Model:       modelID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		TokensUsed:  tokensUsed,
		CreatedAt:   time.Now().UTC(),
	})
	return err
}

// GetChatHistory returns the full history in chronological order.
func (s *ChatService) GetChatHistory(ctx context.Context) ([]model.Message, error) {
	return s.messages.List(ctx)
}

// GetChatHistoryNewestFirst returns the full history in display order.
func (s *ChatService) GetChatHistoryNewestFirst(ctx context.Context) ([]model.Message, error) {
	return s.messages.ListNewestFirst(ctx)
}

// ClearHistory removes all stored turns. Irreversible: the caller is
// expected to have confirmed with the user first.
func (s *ChatService) ClearHistory(ctx context.Context) error {
	if err := s.messages.Clear(ctx); err != nil {
		return err
	}
	slog.Info("chat history cleared")
	return nil
}
