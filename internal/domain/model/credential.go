package model

import "time"

// Credential is the singleton per-installation credential record. It exists
// exactly when the user has completed first-login; its absence signals the
// first-login flow. APIKey is the bearer token for the remote chat API and
// must never be logged in full. PINHash and PINSalt hold the salted PBKDF2
// digest of the locally generated 4-digit PIN; the PIN itself is shown to
// the user once and is not recoverable.
type Credential struct {
	APIKey       string
	PINHash      string
	PINSalt      string
	NotifyChatID string
	UpdatedAt    time.Time
}
