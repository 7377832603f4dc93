// Package agent implements the Analyst/Retriever/Actor/Reviewer
// ensemble: Analyst, Retriever and Reviewer are single-turn genai
// completions; the Actor is an ADK tool-calling agent that must call
// decide_action exactly once per round, the same loop shape the
// original single-tool browser agent used for its own action tools.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// ErrNoRetrieverDocs names the empty-knowledge-base case. Retriever.Retrieve
// does not return it: a missing or empty knowledge base yields the empty
// sentinel RetrieverOutput instead.
var ErrNoRetrieverDocs = fmt.Errorf("agent: no knowledge-base documents found")

// Transport wraps a genai client for the one-shot Analyst/Retriever/
// Reviewer completions.
type Transport struct {
	client *genai.Client
	model  string
}

// NewTransport creates a Transport. apiKey falls back to GOOGLE_API_KEY.
func NewTransport(ctx context.Context, apiKey, model string) (*Transport, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: create genai client: %w", err)
	}
	return &Transport{client: client, model: model}, nil
}

// complete runs a single-turn completion and returns the raw text.
func (t *Transport) complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", fmt.Errorf("agent: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("agent: empty response")
	}
	return text, nil
}

// stripFence removes a leading/trailing ```json or ``` fence, tolerating
// models that wrap their JSON response in markdown even when asked not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeJSON unmarshals raw (fence-tolerant) into dst.
func decodeJSON(raw string, dst any) error {
	clean := stripFence(raw)
	if err := json.Unmarshal([]byte(clean), dst); err != nil {
		return fmt.Errorf("agent: parse model response: %w (raw: %s)", err, truncateForError(raw))
	}
	return nil
}

func truncateForError(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
