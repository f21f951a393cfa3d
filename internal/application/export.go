package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// Exporter writes the chat history to a human-readable JSON file in the
// export directory, one file per export with a timestamp-qualified name.
type Exporter struct {
	messages driven.MessageStore
	dir      string
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(messages driven.MessageStore, dir string) *Exporter {
	return &Exporter{messages: messages, dir: dir}
}

// exportedMessage is the collaborator-facing export shape.
type exportedMessage struct {
	Timestamp   string `json:"timestamp"`
	Model       string `json:"model"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	TokensUsed  int    `json:"tokens_used"`
}

// Export writes the full history, in original chronological order, as an
// indented UTF-8 JSON array and returns the path of the written file.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	messages, err := e.messages.List(ctx)
	if err != nil {
		return "", err
	}

	entries := make([]exportedMessage, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, exportedMessage{
			Timestamp:   msg.CreatedAt.UTC().Format(time.RFC3339),
			Model:       msg.Model,
			UserMessage: msg.UserMessage,
			AIResponse:  msg.AIResponse,
			TokensUsed:  msg.TokensUsed,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	filename := fmt.Sprintf("chat_history_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(e.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	slog.Info("chat history exported", "path", path, "messages", len(entries))
	return path, nil
}
