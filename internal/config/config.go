// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kopeckbot/kopeck/internal/ledger"
	"github.com/kopeckbot/kopeck/internal/llm"
)

// Config is the full application configuration.
type Config struct {
	TelegramToken string
	AllowedUser   string
	StateDBPath   string
	DedupTTL      time.Duration
	LLM           llm.Config
	Ledger        ledger.Config
}

// Load reads configuration from Viper (config file plus KOPECK_ env
// vars) with direct environment fallbacks for credentials.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: viper.GetString("telegram.token"),
		AllowedUser:   viper.GetString("telegram.allowed_user"),
		StateDBPath:   ExpandPath(viper.GetString("state.db_path")),
		DedupTTL:      viper.GetDuration("state.dedup_ttl"),
		LLM: llm.Config{
			Provider:           viper.GetString("llm.provider"),
			APIKey:             viper.GetString("llm.api_key"),
			Model:              viper.GetString("llm.model"),
			BaseURL:            viper.GetString("llm.base_url"),
			TranscriptionModel: viper.GetString("llm.transcription_model"),
			Language:           viper.GetString("llm.language"),
			Temperature:        viper.GetFloat64("llm.temperature"),
			MaxTokens:          viper.GetInt("llm.max_tokens"),
			Timeout:            viper.GetDuration("llm.timeout"),
			RequestsPerMinute:  viper.GetInt("llm.requests_per_minute"),
		},
	}

	cfg.Ledger = ledger.DefaultConfig()
	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.Ledger.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.Ledger.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.Ledger.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		cfg.Ledger.RefreshToken = v
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		cfg.Ledger.SpreadsheetID = v
	}
	if v := viper.GetString("sheets.sheet_name"); v != "" {
		cfg.Ledger.SheetName = v
	}
	if v := viper.GetInt("sheets.history_size"); v > 0 {
		cfg.Ledger.HistorySize = v
	}

	// Credentials straight from the environment when unset
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Ledger.ServiceAccountPath == "" {
		cfg.Ledger.ServiceAccountPath = ExpandPath(os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	}
	if cfg.Ledger.SpreadsheetID == "" {
		cfg.Ledger.SpreadsheetID = os.Getenv("GOOGLE_SHEET_ID")
	}

	return cfg, nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
