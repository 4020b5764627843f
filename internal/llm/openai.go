package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/model"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIClient implements structuring and transcription against the
// OpenAI API.
type openAIClient struct {
	httpClient         *http.Client
	limiter            *rateLimiter
	apiKey             string
	baseURL            string
	model              string
	transcriptionModel string
	language           string
	categories         []string
	temperature        float64
	maxTokens          int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config, categories []string) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = "whisper-1"
	}

	language := cfg.Language
	if language == "" {
		language = "ru"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openAIClient{
		apiKey:             cfg.APIKey,
		baseURL:            baseURL,
		model:              model,
		transcriptionModel: transcriptionModel,
		language:           language,
		categories:         categories,
		temperature:        temperature,
		maxTokens:          maxTokens,
		limiter:            newRateLimiter(cfg.RequestsPerMinute),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Structure sends the structuring request and parses the candidate list.
func (c *openAIClient) Structure(ctx context.Context, text string) ([]model.Candidate, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildStructuringPrompt(text, c.categories)},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStructuring, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", common.ErrRateLimit, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: OpenAI API error (status %d): %s", common.ErrStructuring, resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices returned", common.ErrStructuring)
	}

	candidates, err := decodeCandidates(response.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStructuring, err)
	}

	return candidates, nil
}

// Transcribe uploads the audio payload to the transcription endpoint.
func (c *openAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("language", c.language); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTranscription, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: transcription API error (status %d): %s", common.ErrTranscription, resp.StatusCode, string(body))
	}

	var transcript struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &transcript); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return "", fmt.Errorf("%w: empty transcript", common.ErrTranscription)
	}

	return transcript.Text, nil
}

// Close stops the rate limiter.
func (c *openAIClient) Close() {
	c.limiter.Close()
}
