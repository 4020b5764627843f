package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kopeckbot/kopeck/internal/bot"
	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/config"
	"github.com/kopeckbot/kopeck/internal/dedup"
	"github.com/kopeckbot/kopeck/internal/engine"
	"github.com/kopeckbot/kopeck/internal/extract"
	"github.com/kopeckbot/kopeck/internal/ledger"
	"github.com/kopeckbot/kopeck/internal/llm"
	"github.com/kopeckbot/kopeck/internal/rules"
	"github.com/kopeckbot/kopeck/internal/service"
	"github.com/kopeckbot/kopeck/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long: `Connects to Telegram and processes incoming messages until
interrupted. Requires telegram, llm, and sheets configuration.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.TelegramToken == "" {
		return fmt.Errorf("%w: telegram.token (or TELEGRAM_TOKEN)", common.ErrMissingConfig)
	}
	if cfg.AllowedUser == "" {
		return fmt.Errorf("%w: telegram.allowed_user", common.ErrMissingConfig)
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}

	ruleEngine, err := rules.NewEngine()
	if err != nil {
		return fmt.Errorf("creating rule engine: %w", err)
	}

	structurer, err := llm.NewStructurer(ctx, cfg.LLM, rules.Categories())
	if err != nil {
		return fmt.Errorf("creating structurer: %w", err)
	}

	transcriber, err := llm.NewTranscriber(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating transcriber: %w", err)
	}

	writer, err := ledger.NewWriter(ctx, cfg.Ledger, logger)
	if err != nil {
		return fmt.Errorf("creating sheets writer: %w", err)
	}
	if err := writer.EnsureHeaders(ctx); err != nil {
		return fmt.Errorf("ensuring ledger headers: %w", err)
	}

	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	seen := dedup.NewCache(ttl, 0)
	defer seen.Close()

	var store service.StateStore
	if cfg.StateDBPath != "" {
		sqlStore, err := storage.NewSQLiteStore(cfg.StateDBPath)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		defer func() {
			if err := sqlStore.Close(); err != nil {
				logger.Warn("closing state store", "error", err)
			}
		}()
		store = sqlStore
		logger.Info("state persistence enabled", "path", cfg.StateDBPath)
	}

	eng, err := engine.New(ctx, engine.Config{
		AllowedUser: cfg.AllowedUser,
		Transcriber: transcriber,
		Extractor:   extract.New(structurer, cfg.LLM.Timeout, logger),
		Rules:       ruleEngine,
		Ledger:      writer,
		Seen:        seen,
		Store:       store,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	tgBot, err := bot.New(cfg.TelegramToken, eng, logger)
	if err != nil {
		return err
	}

	if err := tgBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
