package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	CatalogPath  string
	RubricsPath  string
	DatabasePath string

	// LLM keys. Both are optional: when neither is set the feedback
	// generator runs in degraded (claims-only) mode.
	GroqAPIKey   string
	GeminiAPIKey string

	// Secret used to sign and verify API user tokens.
	TokenSigningKey string

	// Telegram config (required only for the bot surface)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	catalogPath := os.Getenv("LEED_CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "data/leed_credits.json"
	}

	rubricsPath := os.Getenv("WRITING_RUBRICS_PATH")
	if rubricsPath == "" {
		rubricsPath = "data/rubrics.json"
	}

	dbPath := os.Getenv("LEED_DB_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("LEED_DB_PATH environment variable not set")
	}

	// An empty signing key would let anyone mint valid tokens.
	tokenSecret := os.Getenv("API_TOKEN_SECRET")
	if tokenSecret == "" {
		return nil, fmt.Errorf("API_TOKEN_SECRET environment variable not set")
	}

	cfg := &Config{
		CatalogPath:        catalogPath,
		RubricsPath:        rubricsPath,
		DatabasePath:       dbPath,
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		TokenSigningKey:    tokenSecret,
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	if ids := os.Getenv("TELEGRAM_ALLOW_USER_IDS"); ids != "" {
		for _, part := range strings.Split(ids, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if admin := os.Getenv("TELEGRAM_ADMIN_ID"); admin != "" {
		id, err := strconv.ParseInt(admin, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_ID %q: %w", admin, err)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}
