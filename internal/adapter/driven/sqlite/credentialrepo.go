package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The table holds at most one row (id = 1); Upsert is an atomic
// replace-or-insert of that row. When a 32-byte secret is configured the
// API key is encrypted with AES-256-GCM before write and decrypted after
// read; the PIN arrives already hashed and is stored as-is.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores the API key in clear.
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store the API key unencrypted.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Upsert atomically stores or replaces the singleton credential record.
func (r *CredentialRepo) Upsert(ctx context.Context, cred model.Credential) error {
	apiKey, err := r.encrypt(cred.APIKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}

	const query = `
		INSERT OR REPLACE INTO credentials (id, api_key, pin_hash, pin_salt, notify_chat_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`
	updatedAt := cred.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err = r.db.Writer.ExecContext(ctx, query,
		apiKey, cred.PINHash, cred.PINSalt, cred.NotifyChatID,
		updatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// Get retrieves the credential record. Returns (nil, nil) when absent.
func (r *CredentialRepo) Get(ctx context.Context) (*model.Credential, error) {
	const query = `SELECT api_key, pin_hash, pin_salt, notify_chat_id, updated_at FROM credentials WHERE id = 1`

	var cred model.Credential
	var apiKey, updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(
		&apiKey, &cred.PINHash, &cred.PINSalt, &cred.NotifyChatID, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred.APIKey, err = r.decrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key: %w", err)
	}
	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse credential updated_at: %w", err)
	}
	return &cred, nil
}

// Delete removes the credential record. Deleting an absent record is a no-op.
func (r *CredentialRepo) Delete(ctx context.Context) error {
	const query = `DELETE FROM credentials WHERE id = 1`
	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

const encryptedPrefix = "enc:"

// encrypt encrypts plaintext with AES-256-GCM and returns
// "enc:" + base64(nonce || ciphertext || tag). With no key configured the
// plaintext passes through unchanged.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt reverses encrypt. Values without the "enc:" prefix are returned
// as-is, so a database written before encryption was enabled stays readable.
func (r *CredentialRepo) decrypt(stored string) (string, error) {
	if len(stored) < len(encryptedPrefix) || stored[:len(encryptedPrefix)] != encryptedPrefix {
		return stored, nil
	}
	if r.key == nil {
		return "", errors.New("stored api key is encrypted but no secret key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(stored[len(encryptedPrefix):])
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}
