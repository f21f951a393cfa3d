package model

// UsageStats aggregates the stored history into the numbers shown in the
// analytics dialog.
type UsageStats struct {
	TotalMessages     int
	TotalTokens       int
	TokensPerMessage  float64
	MessagesPerMinute float64
}
