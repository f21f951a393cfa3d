package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

const (
	pinLength   = 4
	pinSaltSize = 16
	pinKeySize  = 32
	// OWASP-recommended floor for PBKDF2-SHA-256.
	pinIterations = 600_000
)

// Vault gates application access behind a locally generated PIN and owns
// the credential lifecycle. The PIN is persisted only as a salted
// PBKDF2-SHA-256 digest; the clear PIN exists exactly once, in the return
// value of SaveCredential. Unlock state lives for the process lifetime
// only: a restart always requires PIN entry again.
type Vault struct {
	store driven.CredentialStore

	mu       sync.Mutex
	unlocked bool
}

// NewVault creates a Vault over the given credential store.
func NewVault(store driven.CredentialStore) *Vault {
	return &Vault{store: store}
}

// HasCredential reports whether first-login has been completed. False means
// the first-login flow should be shown instead of PIN entry.
func (v *Vault) HasCredential(ctx context.Context) (bool, error) {
	cred, err := v.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

// SaveCredential generates a fresh 4-digit PIN, persists the credential
// record and returns the PIN for one-time display. The PIN is not
// recoverable afterwards; forgetting it requires ResetCredential.
func (v *Vault) SaveCredential(ctx context.Context, apiKey, notifyChatID string) (string, error) {
	pin, err := generatePIN()
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}

	salt := make([]byte, pinSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate pin salt: %w", err)
	}

	cred := model.Credential{
		APIKey:       apiKey,
		PINHash:      hex.EncodeToString(hashPIN(pin, salt)),
		PINSalt:      hex.EncodeToString(salt),
		NotifyChatID: notifyChatID,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := v.store.Upsert(ctx, cred); err != nil {
		return "", err
	}

	slog.Info("credential saved", "notify_chat_id", notifyChatID)
	return pin, nil
}

// VerifyPin reports whether candidate matches the stored PIN. False when no
// credential exists. The comparison runs against the derived digest in
// constant time.
func (v *Vault) VerifyPin(ctx context.Context, candidate string) (bool, error) {
	cred, err := v.store.Get(ctx)
	if err != nil {
		return false, err
	}
	if cred == nil {
		return false, nil
	}

	salt, err := hex.DecodeString(cred.PINSalt)
	if err != nil {
		return false, fmt.Errorf("decode pin salt: %w", err)
	}
	want, err := hex.DecodeString(cred.PINHash)
	if err != nil {
		return false, fmt.Errorf("decode pin hash: %w", err)
	}

	got := hashPIN(candidate, salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Unlock verifies the candidate PIN and, on success, marks the session
// unlocked. The flag is never persisted.
func (v *Vault) Unlock(ctx context.Context, candidate string) (bool, error) {
	ok, err := v.VerifyPin(ctx, candidate)
	if err != nil {
		return false, err
	}
	if ok {
		v.mu.Lock()
		v.unlocked = true
		v.mu.Unlock()
		slog.Info("session unlocked")
	}
	return ok, nil
}

// Unlocked reports whether the current process session has been unlocked.
func (v *Vault) Unlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlocked
}

// ResetCredential deletes the stored credential unconditionally and locks
// the session. The next access flow reverts to first-login.
func (v *Vault) ResetCredential(ctx context.Context) error {
	if err := v.store.Delete(ctx); err != nil {
		return err
	}
	v.mu.Lock()
	v.unlocked = false
	v.mu.Unlock()
	slog.Info("credential reset")
	return nil
}

// APIKey returns the stored API key, or driven.ErrMissingCredential when no
// credential exists.
func (v *Vault) APIKey(ctx context.Context) (string, error) {
	cred, err := v.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", driven.ErrMissingCredential
	}
	return cred.APIKey, nil
}

// NotifyChatID returns the stored notification destination, or
// driven.ErrMissingCredential when no credential exists.
func (v *Vault) NotifyChatID(ctx context.Context) (string, error) {
	cred, err := v.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", driven.ErrMissingCredential
	}
	return cred.NotifyChatID, nil
}

// generatePIN draws each of the four digits independently from crypto/rand,
// so leading zeros are valid and the PIN is always exactly 4 characters.
func generatePIN() (string, error) {
	digits := make([]byte, pinLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}

func hashPIN(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, pinIterations, pinKeySize, sha256.New)
}
