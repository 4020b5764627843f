// Package engine drives the message pipeline: authorize the sender,
// transcribe voice, extract candidates, normalize them, and append the
// survivors to the ledger. It owns the dedup and undo state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/dedup"
	"github.com/kopeckbot/kopeck/internal/model"
	"github.com/kopeckbot/kopeck/internal/rules"
	"github.com/kopeckbot/kopeck/internal/service"
)

// Extractor yields candidate transactions for a message text.
type Extractor interface {
	Extract(ctx context.Context, text string) []model.Candidate
}

// Config wires the engine's collaborators.
type Config struct {
	AllowedUser string
	Transcriber service.Transcriber
	Extractor   Extractor
	Rules       *rules.Engine
	Ledger      service.Ledger
	Seen        *dedup.Cache
	Store       service.StateStore // optional
	Logger      *slog.Logger
}

// Engine is the interaction controller.
type Engine struct {
	allowedUser string
	transcriber service.Transcriber
	extractor   Extractor
	rules       *rules.Engine
	ledger      service.Ledger
	seen        *dedup.Cache
	store       service.StateStore
	logger      *slog.Logger

	// mu serializes the dedup-check-and-append section so two
	// deliveries of the same message can never both write.
	mu sync.Mutex
}

// New creates an engine and, when a state store is configured, reloads
// persisted dedup and undo state.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.AllowedUser == "" {
		return nil, fmt.Errorf("%w: allowed user is required", common.ErrMissingConfig)
	}
	if cfg.Extractor == nil || cfg.Rules == nil || cfg.Ledger == nil || cfg.Seen == nil {
		return nil, fmt.Errorf("%w: extractor, rules, ledger and dedup cache are required", common.ErrMissingConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		allowedUser: cfg.AllowedUser,
		transcriber: cfg.Transcriber,
		extractor:   cfg.Extractor,
		rules:       cfg.Rules,
		ledger:      cfg.Ledger,
		seen:        cfg.Seen,
		store:       cfg.Store,
		logger:      cfg.Logger,
	}

	if e.store != nil {
		keys, err := e.store.LoadSeen(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload dedup state: %w", err)
		}
		e.seen.Preload(keys)

		receipts, err := e.store.LoadHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload undo state: %w", err)
		}
		e.ledger.Restore(receipts)
	}

	return e, nil
}

// Result is the outcome of processing one message.
type Result struct {
	Transcript string
	Rejected   []string
	Written    []model.Transaction
	Receipts   []model.Receipt
	Duplicate  bool
}

// HandleMessage runs the full pipeline for one incoming message.
// Unauthorized senders are rejected before any adapter is invoked.
func (e *Engine) HandleMessage(ctx context.Context, msg model.IncomingMessage) (Result, error) {
	if !e.Authorized(msg.Sender) {
		e.logger.Warn("unauthorized sender", "sender", msg.Sender, "chat_id", msg.ChatID)
		return Result{}, common.ErrUnauthorized
	}

	var result Result

	text := msg.Text
	if msg.IsVoice() {
		if e.transcriber == nil {
			return result, fmt.Errorf("%w: no transcriber configured", common.ErrTranscription)
		}
		transcript, err := e.transcriber.Transcribe(ctx, msg.Audio)
		if err != nil {
			if !errors.Is(err, common.ErrTranscription) {
				err = fmt.Errorf("%w: %v", common.ErrTranscription, err)
			}
			return result, err
		}
		text = transcript
		result.Transcript = transcript
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := msg.Key()
	if e.seen.Mark(key) {
		e.logger.Info("duplicate message skipped", "key", key)
		result.Duplicate = true
		return result, nil
	}
	e.persistSeen(ctx, key)

	candidates := e.extractor.Extract(ctx, text)

	for _, candidate := range candidates {
		tx, err := e.rules.Normalize(candidate)
		if err != nil {
			if errors.Is(err, rules.ErrRejected) {
				e.logger.Info("candidate rejected", "key", key, "error", err)
				result.Rejected = append(result.Rejected, rejectionNote(candidate))
				continue
			}
			return result, err
		}

		receipt, err := e.ledger.Append(ctx, tx, key)
		if err != nil {
			e.persistHistory(ctx)
			return result, fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
		}

		result.Written = append(result.Written, tx)
		result.Receipts = append(result.Receipts, receipt)
	}

	e.persistHistory(ctx)

	return result, nil
}

// Authorized reports whether the sender is the configured owner.
func (e *Engine) Authorized(sender string) bool {
	return sender == e.allowedUser
}

// Undo removes the most recently written row. The same exact-identity
// check as HandleMessage runs first, so an unauthorized sender can
// never delete a row. With nothing to undo it returns ErrNothingToUndo
// and performs no destructive action.
func (e *Engine) Undo(ctx context.Context, sender string) (model.Receipt, error) {
	if !e.Authorized(sender) {
		e.logger.Warn("unauthorized undo attempt", "sender", sender)
		return model.Receipt{}, common.ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	receipt, err := e.ledger.Undo(ctx)
	if err != nil {
		return model.Receipt{}, err
	}

	e.persistHistory(ctx)

	return receipt, nil
}

// rejectionNote names the dropped candidate for the user-visible note.
func rejectionNote(c model.Candidate) string {
	if c.Description != "" {
		return c.Description
	}
	if c.Category != "" {
		return c.Category
	}
	return "операция без суммы"
}

// persistSeen writes through to the state store. Persistence failures
// degrade to in-memory state rather than blocking the pipeline.
func (e *Engine) persistSeen(ctx context.Context, key string) {
	if e.store == nil {
		return
	}
	if err := e.store.MarkSeen(ctx, key); err != nil {
		e.logger.Warn("failed to persist seen message", "key", key, "error", err)
	}
}

func (e *Engine) persistHistory(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveHistory(ctx, e.ledger.History()); err != nil {
		e.logger.Warn("failed to persist undo history", "error", err)
	}
}
