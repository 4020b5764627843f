package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kopeckbot/kopeck/internal/service"
)

// NewStructurer creates a structuring client for the configured provider.
// The category list is baked into the prompt so the model only emits
// values from the closed set.
func NewStructurer(ctx context.Context, cfg Config, categories []string) (service.Structurer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIClient(cfg, categories)
	case "gemini":
		return newGeminiClient(ctx, cfg, categories)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewTranscriber creates a speech-to-text client. Only the OpenAI
// Whisper endpoint is supported; it is used regardless of which
// structuring provider is selected.
func NewTranscriber(cfg Config) (service.Transcriber, error) {
	return newOpenAIClient(cfg, nil)
}
