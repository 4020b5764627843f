// Package llm provides the external language-understanding adapters:
// the structuring call that turns free text into candidate transactions
// and the speech-to-text transcription call.
package llm

import "time"

// Config holds the configuration for LLM providers.
type Config struct {
	Provider           string
	APIKey             string
	Model              string
	TranscriptionModel string
	BaseURL            string
	Language           string
	Temperature        float64
	MaxTokens          int
	Timeout            time.Duration
	RequestsPerMinute  int
}
