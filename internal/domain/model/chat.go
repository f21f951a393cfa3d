package model

// DefaultModelID is the hard fallback used when model resolution comes up
// empty: no model was selected and the model list itself is empty.
const DefaultModelID = "gpt-3.5-turbo"

// ModelInfo describes one remote model as returned by the model-list
// endpoint. It is transient: cached in memory per client instance, never
// persisted.
type ModelInfo struct {
	ID   string
	Name string
}

// FallbackModels is the fixed model list returned when the remote list call
// fails. The chat surface must always have a non-empty list to offer, so
// availability wins over correctness here.
func FallbackModels() []ModelInfo {
	return []ModelInfo{
		{ID: "deepseek-coder", Name: "DeepSeek"},
		{ID: "claude-3-sonnet", Name: "Claude 3.5 Sonnet"},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
	}
}

// ChatResult is the outcome of one remote chat-completion call. Remote and
// transport failures are carried in Err as data rather than raised, so the
// caller branches on Err instead of catching anything.
type ChatResult struct {
	// Model is the model id the call was actually issued against, after
	// empty-id resolution.
	Model      string
	Content    string
	TokensUsed int
	// Err is a human-readable failure description, empty on success.
	Err string
}

// Failed reports whether the call produced an error result.
func (r ChatResult) Failed() bool {
	return r.Err != ""
}
