package model

import "time"

// Message is one completed chat turn. Failed turns are stored too, with the
// error text as AIResponse and TokensUsed = 0, so the history reflects what
// the user actually saw.
type Message struct {
	ID          int64
	Model       string
	UserMessage string
	AIResponse  string
	TokensUsed  int
	CreatedAt   time.Time
}
