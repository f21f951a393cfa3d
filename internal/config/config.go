// Package config loads application configuration from environment
// variables, optionally layered over a YAML file.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration. Explicit parameters passed to
// constructors take precedence over these values, which in turn take env
// over file.
type Config struct {
	// APIKey is the remote chat API credential. Optional at startup: the
	// vault-stored credential takes priority once first-login completes.
	APIKey string
	// BaseURL overrides the vendor endpoint.
	BaseURL string
	// TelegramBotToken and TelegramChatID configure the notification side
	// channel. Both optional; notifications degrade to a log line.
	TelegramBotToken string
	TelegramChatID   string
	DBPath           string
	ExportDir        string
	// BalanceThreshold is the limit below which a low-balance alert fires.
	BalanceThreshold float64
	// SecretKey is the derived 32-byte AES-256 key for credential
	// encryption at rest, or nil when AICHAT_SECRET_KEY is unset.
	SecretKey []byte
}

// fileConfig is the YAML file shape. Zero values mean "not set".
type fileConfig struct {
	APIKey           string   `yaml:"api_key"`
	BaseURL          string   `yaml:"base_url"`
	TelegramBotToken string   `yaml:"telegram_bot_token"`
	TelegramChatID   string   `yaml:"telegram_chat_id"`
	DBPath           string   `yaml:"db_path"`
	ExportDir        string   `yaml:"export_dir"`
	BalanceThreshold *float64 `yaml:"balance_threshold"`
}

// Load reads configuration. Defaults are overlaid by the YAML file named in
// AICHAT_CONFIG (when set), then by environment variables: OPENROUTER_API_KEY,
// BASE_URL, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, AICHAT_DB_PATH,
// AICHAT_EXPORT_DIR, AICHAT_BALANCE_THRESHOLD and AICHAT_SECRET_KEY.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:          "https://openrouter.ai/api/v1",
		DBPath:           "aichat.db",
		ExportDir:        "exports",
		BalanceThreshold: 5.0,
	}

	if path, ok := os.LookupEnv("AICHAT_CONFIG"); ok && path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.TelegramChatID = v
	}
	if v := os.Getenv("AICHAT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("AICHAT_EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v, ok := os.LookupEnv("AICHAT_BALANCE_THRESHOLD"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("AICHAT_BALANCE_THRESHOLD has invalid value %q: %w", v, err)
		}
		cfg.BalanceThreshold = parsed
	}
	if v := os.Getenv("AICHAT_SECRET_KEY"); v != "" {
		// Any passphrase works; an AES-256 key is derived from it.
		key := sha256.Sum256([]byte(v))
		cfg.SecretKey = key[:]
	}

	if cfg.BalanceThreshold < 0 {
		return nil, fmt.Errorf("balance threshold must not be negative, got %v", cfg.BalanceThreshold)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.TelegramBotToken != "" {
		c.TelegramBotToken = fc.TelegramBotToken
	}
	if fc.TelegramChatID != "" {
		c.TelegramChatID = fc.TelegramChatID
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.ExportDir != "" {
		c.ExportDir = fc.ExportDir
	}
	if fc.BalanceThreshold != nil {
		c.BalanceThreshold = *fc.BalanceThreshold
	}
	return nil
}
