package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

// BalanceMonitor composes the chat client, the notifier and the vault: it
// reads the balance on demand, compares it to a threshold and dispatches an
// alert to the vault's stored destination when breached. Notification
// failures are logged and swallowed here -- the monitor is a side channel
// and must never interrupt the primary flow.
type BalanceMonitor struct {
	clients  *ChatClientProvider
	notifier driven.Notifier
	vault    *Vault
}

// NewBalanceMonitor creates a BalanceMonitor.
func NewBalanceMonitor(clients *ChatClientProvider, notifier driven.Notifier, vault *Vault) *BalanceMonitor {
	return &BalanceMonitor{clients: clients, notifier: notifier, vault: vault}
}

// Check reads the balance and alerts when it is strictly below threshold.
// A balance-read failure is logged and ends the check without notifying:
// never a spurious alert on bad data. A parse failure on an otherwise
// successful read is likewise logged, not escalated.
func (m *BalanceMonitor) Check(ctx context.Context, threshold float64) {
	client := m.clients.Get()
	if client == nil {
		slog.Error("balance check skipped: no api client configured")
		return
	}

	balance := client.GetBalance(ctx, true)
	if balance == driven.BalanceUnavailable {
		slog.Error("failed to retrieve balance, no notification sent")
		return
	}

	value, err := parseBalance(balance)
	if err != nil {
		slog.Error("failed to parse balance", "balance", balance, "error", err)
		return
	}

	if value >= threshold {
		slog.Debug("balance above threshold", "balance", value, "threshold", threshold)
		return
	}

	chatID, err := m.vault.NotifyChatID(ctx)
	if err != nil {
		slog.Warn("low balance detected but no notification destination", "error", err)
		return
	}

	text := fmt.Sprintf(
		"Warning: your balance %.2f is below the %.2f threshold.\nTop up your account to avoid service interruptions.",
		value, threshold,
	)
	if err := m.notifier.Notify(ctx, chatID, text); err != nil {
		slog.Error("low balance notification failed", "error", err)
		return
	}
	slog.Info("low balance notification sent", "balance", value, "threshold", threshold)
}

// ReportCurrent sends a best-effort "current balance" notification, used
// when a session starts. All failures are logged and swallowed.
func (m *BalanceMonitor) ReportCurrent(ctx context.Context) {
	client := m.clients.Get()
	if client == nil {
		return
	}

	balance := client.GetBalance(ctx, true)
	if balance == driven.BalanceUnavailable {
		slog.Warn("balance report skipped: balance unavailable")
		return
	}

	chatID, err := m.vault.NotifyChatID(ctx)
	if err != nil {
		return
	}
	if err := m.notifier.Notify(ctx, chatID, "Current balance: "+balance); err != nil {
		slog.Error("balance report failed", "error", err)
	}
}

// parseBalance extracts the numeric value from a "$X.XX" balance string.
func parseBalance(balance string) (float64, error) {
	return strconv.ParseFloat(strings.TrimPrefix(balance, "$"), 64)
}
