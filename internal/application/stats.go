package application

import (
	"context"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// StatsService aggregates the stored history into usage statistics.
type StatsService struct {
	messages driven.MessageStore
}

// NewStatsService creates a StatsService.
func NewStatsService(messages driven.MessageStore) *StatsService {
	return &StatsService{messages: messages}
}

// Stats computes usage statistics over the whole history. An empty history
// yields all zeros. The message rate is measured over the span between the
// first and last stored turn; with a single turn (zero span) the rate is
// the message count itself.
func (s *StatsService) Stats(ctx context.Context) (model.UsageStats, error) {
	messages, err := s.messages.List(ctx)
	if err != nil {
		return model.UsageStats{}, err
	}
	if len(messages) == 0 {
		return model.UsageStats{}, nil
	}

	stats := model.UsageStats{TotalMessages: len(messages)}
	for _, msg := range messages {
		stats.TotalTokens += msg.TokensUsed
	}
	stats.TokensPerMessage = float64(stats.TotalTokens) / float64(stats.TotalMessages)

	minutes := messages[len(messages)-1].CreatedAt.Sub(messages[0].CreatedAt).Minutes()
	if minutes <= 0 {
		stats.MessagesPerMinute = float64(stats.TotalMessages)
	} else {
		stats.MessagesPerMinute = float64(stats.TotalMessages) / minutes
	}
	return stats, nil
}
