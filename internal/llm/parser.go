package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kopeckbot/kopeck/internal/model"
)

// cleanResponseJSON strips markdown fences and surrounding prose that
// models sometimes emit despite instructions.
func cleanResponseJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Recover a bare array embedded in commentary
	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "[")
		end := strings.LastIndex(s, "]")
		if start != -1 && end > start {
			s = s[start : end+1]
		}
	}

	return s
}

// rawCandidate tolerates numeric or string amounts in the model output.
type rawCandidate struct {
	Type        string      `json:"operation_type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
}

// decodeCandidates parses the structuring response into candidates,
// preserving emission order. It accepts either a bare JSON array or an
// object wrapping the array under "operations" or "transactions".
func decodeCandidates(content string) ([]model.Candidate, error) {
	clean := cleanResponseJSON(content)
	if clean == "" {
		return nil, fmt.Errorf("empty response")
	}

	var raw []rawCandidate
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		var wrapper struct {
			Operations   []rawCandidate `json:"operations"`
			Transactions []rawCandidate `json:"transactions"`
		}
		if wrapErr := json.Unmarshal([]byte(clean), &wrapper); wrapErr != nil {
			return nil, fmt.Errorf("unparsable structuring response: %w", err)
		}
		raw = wrapper.Operations
		if len(raw) == 0 {
			raw = wrapper.Transactions
		}
	}

	candidates := make([]model.Candidate, 0, len(raw))
	for _, r := range raw {
		candidates = append(candidates, model.Candidate{
			Type:        strings.TrimSpace(r.Type),
			Category:    strings.TrimSpace(r.Category),
			Description: strings.TrimSpace(r.Description),
			Amount:      r.Amount.String(),
			Date:        strings.TrimSpace(r.Date),
		})
	}

	return candidates, nil
}
