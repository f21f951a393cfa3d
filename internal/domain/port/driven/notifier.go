package driven

import "context"

// Notifier defines the driven port for one-shot, best-effort alert delivery.
// Implementations return transport errors so the caller can decide the
// swallow-and-log policy; a missing destination is handled inside the
// adapter and is not an error.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string) error
}
