// Package extract turns raw message text into candidate transactions.
// It tries the external structuring call first and degrades to a
// deterministic trigger-word extractor, so a user can always log a
// transaction even when the language model is down.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/kopeckbot/kopeck/internal/model"
	"github.com/kopeckbot/kopeck/internal/service"
)

const defaultTimeout = 20 * time.Second

// Extractor implements the two-tier extraction pipeline.
type Extractor struct {
	structurer service.Structurer
	logger     *slog.Logger
	timeout    time.Duration
}

// New creates an extractor over the given structuring adapter.
func New(structurer service.Structurer, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		structurer: structurer,
		timeout:    timeout,
		logger:     logger,
	}
}

// Extract returns the ordered candidate transactions found in text.
// A structuring failure or timeout is never propagated: the fallback
// extractor answers instead, yielding at most one candidate. An empty
// result means "no transaction found" and is not an error.
func (e *Extractor) Extract(ctx context.Context, text string) []model.Candidate {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	candidates, err := e.structurer.Structure(ctx, text)
	if err != nil {
		e.logger.Warn("structuring call failed, using fallback extractor", "error", err)
		return Fallback(text)
	}

	return candidates
}
