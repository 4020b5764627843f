package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/model"
)

// geminiClient implements the structuring call against the Gemini API.
type geminiClient struct {
	client     *genai.Client
	limiter    *rateLimiter
	model      string
	categories []string
}

// newGeminiClient creates a new Gemini structuring client.
func newGeminiClient(ctx context.Context, cfg Config, categories []string) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClient{
		client:     client,
		model:      model,
		categories: categories,
		limiter:    newRateLimiter(cfg.RequestsPerMinute),
	}, nil
}

// Structure sends the structuring request and parses the candidate list.
func (c *geminiClient) Structure(ctx context.Context, text string) ([]model.Candidate, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\n" + buildStructuringPrompt(text, c.categories)},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStructuring, err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response from model", common.ErrStructuring)
	}

	candidates, err := decodeCandidates(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStructuring, err)
	}

	return candidates, nil
}

// Close stops the rate limiter.
func (c *geminiClient) Close() {
	c.limiter.Close()
}
