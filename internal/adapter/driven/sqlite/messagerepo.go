package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageStore = (*MessageRepo)(nil)

// MessageRepo is the SQLite implementation of the MessageStore port.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo creates a MessageRepo backed by the given DB.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores one chat turn and returns its assigned id.
func (r *MessageRepo) Append(ctx context.Context, msg model.Message) (int64, error) {
	const query = `
		INSERT INTO messages (model, user_message, ai_response, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.Writer.ExecContext(ctx, query,
		msg.Model, msg.UserMessage, msg.AIResponse, msg.TokensUsed,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message insert id: %w", err)
	}
	return id, nil
}

// List returns the full history in chronological order.
func (r *MessageRepo) List(ctx context.Context) ([]model.Message, error) {
	return r.list(ctx, "ASC")
}

// ListNewestFirst returns the full history in reverse chronological order.
func (r *MessageRepo) ListNewestFirst(ctx context.Context) ([]model.Message, error) {
	return r.list(ctx, "DESC")
}

func (r *MessageRepo) list(ctx context.Context, direction string) ([]model.Message, error) {
	query := fmt.Sprintf(
		`SELECT id, model, user_message, ai_response, tokens_used, created_at FROM messages ORDER BY id %s`,
		direction,
	)

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// Clear removes all stored turns.
func (r *MessageRepo) Clear(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (model.Message, error) {
	var msg model.Message
	var createdAt string
	if err := rows.Scan(&msg.ID, &msg.Model, &msg.UserMessage, &msg.AIResponse, &msg.TokensUsed, &createdAt); err != nil {
		return model.Message{}, fmt.Errorf("scan message: %w", err)
	}

	var err error
	msg.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("parse message created_at: %w", err)
	}
	return msg, nil
}

// parseTime tries the SQLite datetime formats seen in practice.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
