package driven

import (
	"context"

	"github.com/dshestakov/aichat/internal/domain/model"
)

// CredentialStore defines the driven port for persisting the singleton
// credential record. The adapter layer owns encryption at rest; this
// interface operates on plaintext API keys at the domain boundary. The PIN
// crosses this boundary already hashed -- the store never sees it in clear.
type CredentialStore interface {
	// Upsert atomically stores or replaces the credential record.
	// There is never more than one row; a partial write is not observable.
	Upsert(ctx context.Context, cred model.Credential) error

	// Get retrieves the credential record. Returns (nil, nil) when no
	// record exists, which is the signal for the first-login flow.
	Get(ctx context.Context) (*model.Credential, error)

	// Delete removes the credential record unconditionally. Deleting an
	// absent record is not an error.
	Delete(ctx context.Context) error
}
