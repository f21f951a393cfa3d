// Package application contains use-case orchestration services.
package application

import (
	"sync"

	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// ChatClientProvider enables runtime hot-swap of the chat client. It holds a
// mutex-protected reference to the current driven.ChatClient, so completing
// first-login can install a keyed client without restarting the process.
type ChatClientProvider struct {
	mu     sync.RWMutex
	client driven.ChatClient
}

// NewChatClientProvider creates a provider with the given initial client.
// client may be nil when no credential is available at startup.
func NewChatClientProvider(client driven.ChatClient) *ChatClientProvider {
	return &ChatClientProvider{client: client}
}

// Get returns the current chat client. Callers should check for nil if the
// provider was created without an initial client.
func (p *ChatClientProvider) Get() driven.ChatClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives the new
// value.
func (p *ChatClientProvider) Replace(client driven.ChatClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *ChatClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
