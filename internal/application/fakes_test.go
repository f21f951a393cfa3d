package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/dshestakov/aichat/internal/domain/model"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// memCredStore is an in-memory CredentialStore fake.
type memCredStore struct {
	mu   sync.Mutex
	cred *model.Credential
	err  error
}

func (s *memCredStore) Upsert(_ context.Context, cred model.Credential) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
	return nil
}

func (s *memCredStore) Get(_ context.Context) (*model.Credential, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *memCredStore) Delete(_ context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

// memMessageStore is an in-memory MessageStore fake.
type memMessageStore struct {
	mu     sync.Mutex
	msgs   []model.Message
	nextID int64
	err    error
}

func (s *memMessageStore) Append(_ context.Context, msg model.Message) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.msgs = append(s.msgs, msg)
	return msg.ID, nil
}

func (s *memMessageStore) List(_ context.Context) ([]model.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.msgs...), nil
}

func (s *memMessageStore) ListNewestFirst(ctx context.Context) ([]model.Message, error) {
	msgs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *memMessageStore) Clear(_ context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	return nil
}

// stubClient is a canned-response ChatClient fake.
type stubClient struct {
	validateErr error
	models      []model.ModelInfo
	result      model.ChatResult
	sendErr     error
	balance     string
}

func (c *stubClient) ValidateCredential() error {
	return c.validateErr
}

func (c *stubClient) ListModels(_ context.Context, _ bool) []model.ModelInfo {
	return c.models
}

func (c *stubClient) SendMessage(_ context.Context, text, modelID string) (model.ChatResult, error) {
	if c.sendErr != nil {
		return model.ChatResult{}, c.sendErr
	}
	result := c.result
	if result.Model == "" {
		result.Model = modelID
	}
	return result, nil
}

func (c *stubClient) GetBalance(_ context.Context, _ bool) string {
	return c.balance
}

var _ driven.ChatClient = (*stubClient)(nil)

// recordingNotifier records Notify calls and optionally fails them.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

type notifyCall struct {
	chatID string
	text   string
}

func (n *recordingNotifier) Notify(_ context.Context, chatID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{chatID: chatID, text: text})
	return n.err
}

func (n *recordingNotifier) sent() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}
