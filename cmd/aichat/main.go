// Command aichat wires the trust and resilience core and drives it through
// a minimal line-oriented shell. The shell is deliberately thin: it only
// renders what the core returns, the way a desktop front end would.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for static builds

	openrouteradapter "github.com/dshestakov/aichat/internal/adapter/driven/openrouter"
	sqliteadapter "github.com/dshestakov/aichat/internal/adapter/driven/sqlite"
	telegramadapter "github.com/dshestakov/aichat/internal/adapter/driven/telegram"
	"github.com/dshestakov/aichat/internal/application"
	"github.com/dshestakov/aichat/internal/config"
	"github.com/dshestakov/aichat/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"db_path", cfg.DBPath,
		"export_dir", cfg.ExportDir,
		"balance_threshold", cfg.BalanceThreshold,
	)

	// 2. Signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 4. Wire adapters and services.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	messageStore := sqliteadapter.NewMessageRepo(db)
	notifier := telegramadapter.NewNotifier(cfg.TelegramBotToken, "")

	vault := application.NewVault(credentialStore)
	provider := application.NewChatClientProvider(nil)
	chatSvc := application.NewChatService(messageStore, provider)
	monitor := application.NewBalanceMonitor(provider, notifier, vault)
	exporter := application.NewExporter(messageStore, cfg.ExportDir)
	statsSvc := application.NewStatsService(messageStore)

	in := bufio.NewScanner(os.Stdin)

	// 5. Auth flow: first-login or PIN entry.
	if err := authenticate(ctx, in, cfg, vault); err != nil {
		return err
	}

	// 6. Install the keyed client and run the session-start balance checks.
	apiKey, err := vault.APIKey(ctx)
	if err != nil {
		return err
	}
	provider.Replace(openrouteradapter.NewClient(apiKey, cfg.BaseURL))
	monitor.ReportCurrent(ctx)
	monitor.Check(ctx, cfg.BalanceThreshold)

	// 7. Chat loop.
	return chatLoop(ctx, in, provider, chatSvc, monitor, exporter, statsSvc, vault, cfg)
}

// authenticate runs first-login when no credential exists, or PIN entry
// otherwise. It returns when the session is unlocked or input ends.
func authenticate(ctx context.Context, in *bufio.Scanner, cfg *config.Config, vault *application.Vault) error {
	has, err := vault.HasCredential(ctx)
	if err != nil {
		return err
	}

	if !has {
		return firstLogin(ctx, in, cfg, vault)
	}

	for {
		fmt.Print("PIN: ")
		if !in.Scan() {
			return fmt.Errorf("input closed during pin entry")
		}
		entry := strings.TrimSpace(in.Text())
		if entry == "/reset" {
			if err := vault.ResetCredential(ctx); err != nil {
				return err
			}
			fmt.Println("Credential reset.")
			return firstLogin(ctx, in, cfg, vault)
		}

		ok, err := vault.Unlock(ctx, entry)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		fmt.Println("Wrong PIN. Try again, or type /reset to start over.")
	}
}

// firstLogin collects the API key and notification destination, validates
// the key with a balance read and stores the credential. The generated PIN
// is printed exactly once.
func firstLogin(ctx context.Context, in *bufio.Scanner, cfg *config.Config, vault *application.Vault) error {
	for {
		fmt.Print("API key: ")
		if !in.Scan() {
			return fmt.Errorf("input closed during first login")
		}
		apiKey := strings.TrimSpace(in.Text())

		fmt.Print("Notification chat id: ")
		if !in.Scan() {
			return fmt.Errorf("input closed during first login")
		}
		chatID := strings.TrimSpace(in.Text())
		if chatID == "" {
			// Fall back to the configured destination when one exists.
			chatID = cfg.TelegramChatID
		}

		if apiKey == "" || chatID == "" {
			fmt.Println("Both fields are required.")
			continue
		}

		if reason, ok := checkAPIKey(ctx, apiKey, cfg.BaseURL); !ok {
			fmt.Println(reason)
			continue
		}

		pin, err := vault.SaveCredential(ctx, apiKey, chatID)
		if err != nil {
			return err
		}
		fmt.Printf("Your PIN is %s -- save it now, it will not be shown again.\n", pin)
		return nil
	}
}

// checkAPIKey validates a candidate key with a balance read: an unreadable
// balance means a bad key, a non-positive one means no usable credit.
func checkAPIKey(ctx context.Context, apiKey, baseURL string) (string, bool) {
	client := openrouteradapter.NewClient(apiKey, baseURL)

	balance := client.GetBalance(ctx, true)
	if balance == driven.BalanceUnavailable {
		return "Invalid API key.", false
	}

	var value float64
	if _, err := fmt.Sscanf(balance, "$%f", &value); err != nil {
		return "Could not read account balance.", false
	}
	if value <= 0 {
		return "Insufficient balance on this account.", false
	}
	return "", true
}

func chatLoop(
	ctx context.Context,
	in *bufio.Scanner,
	provider *application.ChatClientProvider,
	chatSvc *application.ChatService,
	monitor *application.BalanceMonitor,
	exporter *application.Exporter,
	statsSvc *application.StatsService,
	vault *application.Vault,
	cfg *config.Config,
) error {
	models := application.RankModels(provider.Get().ListModels(ctx, false))
	currentModel := ""
	if len(models) > 0 {
		currentModel = models[0].ID
	}
	fmt.Printf("Model: %s. Type a message, or /help for commands.\n", currentModel)

	for {
		fmt.Print("> ")
		if !in.Scan() {
			return nil
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case line == "/quit":
			return nil
		case line == "/help":
			fmt.Println("/models /model <id> /history /clear /export /stats /balance /reset /quit")
		case line == "/models":
			for _, m := range application.RankModels(provider.Get().ListModels(ctx, true)) {
				fmt.Printf("  %s (%s)\n", m.ID, m.Name)
			}
		case strings.HasPrefix(line, "/model "):
			currentModel = strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			fmt.Printf("Model set to %s.\n", currentModel)
		case line == "/history":
			history, err := chatSvc.GetChatHistory(ctx)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			for _, msg := range history {
				fmt.Printf("[%s] you: %s\n[%s] %s: %s\n",
					msg.CreatedAt.Format("15:04"), msg.UserMessage,
					msg.CreatedAt.Format("15:04"), msg.Model, msg.AIResponse)
			}
		case line == "/clear":
			fmt.Print("This cannot be undone. Type yes to confirm: ")
			if !in.Scan() || strings.TrimSpace(in.Text()) != "yes" {
				fmt.Println("Canceled.")
				continue
			}
			if err := chatSvc.ClearHistory(ctx); err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println("History cleared.")
		case line == "/export":
			path, err := exporter.Export(ctx)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println("Saved to", path)
		case line == "/stats":
			stats, err := statsSvc.Stats(ctx)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Printf("Messages: %d, tokens: %d, tokens/message: %.2f, messages/minute: %.2f\n",
				stats.TotalMessages, stats.TotalTokens, stats.TokensPerMessage, stats.MessagesPerMinute)
		case line == "/balance":
			fmt.Println("Balance:", provider.Get().GetBalance(ctx, true))
		case line == "/reset":
			if err := vault.ResetCredential(ctx); err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fmt.Println("Credential reset. Restart to log in again.")
			return nil
		default:
			// Run the turn off the input loop so a slow remote call can be
			// interrupted by signal-driven shutdown.
			type turnResult struct {
				response string
				err      error
			}
			done := make(chan turnResult, 1)
			go func() {
				msg, err := chatSvc.SendTurn(ctx, line, currentModel)
				done <- turnResult{response: msg.AIResponse, err: err}
			}()

			select {
			case <-ctx.Done():
				return nil
			case result := <-done:
				if result.err != nil {
					fmt.Println("Error:", result.err)
					continue
				}
				fmt.Println(result.response)
				monitor.Check(ctx, cfg.BalanceThreshold)
			}
		}
	}
}
