// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/kopeckbot/kopeck/internal/model"
)

// Transcriber converts an audio payload into raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Structurer turns raw text into an ordered sequence of candidate
// transactions. An empty slice with a nil error means "no transaction
// found" and is not a failure.
type Structurer interface {
	Structure(ctx context.Context, text string) ([]model.Candidate, error)
}

// Ledger is the append-only ledger with single-row undo. The writer
// owns the receipt history; Undo removes the most recently appended
// row and returns its receipt.
type Ledger interface {
	Append(ctx context.Context, tx model.Transaction, messageKey string) (model.Receipt, error)
	Undo(ctx context.Context) (model.Receipt, error)
	History() []model.Receipt
	Restore(receipts []model.Receipt)
}

// StateStore persists dedup and undo state across process restarts.
// Implementations are optional; a nil store means in-memory only.
type StateStore interface {
	MarkSeen(ctx context.Context, key string) error
	LoadSeen(ctx context.Context) ([]string, error)
	SaveHistory(ctx context.Context, receipts []model.Receipt) error
	LoadHistory(ctx context.Context) ([]model.Receipt, error)
	Close() error
}

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
