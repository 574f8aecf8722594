// Package llm – GroqProvider
//
// First fallback backend (Llama via Groq). OpenAI-compatible chat API with
// response_format json_object for structured output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel          = "llama-3.3-70b-versatile"
)

// GroqProvider calls the Groq chat-completions API.
type GroqProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGroqProvider constructs the provider with an injected HTTP client.
// Pass baseURL "" for the production endpoint.
func NewGroqProvider(apiKey, baseURL string, client *http.Client) *GroqProvider {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	return &GroqProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name identifies this provider in the fallback order and in logs.
func (p *GroqProvider) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate sends the shared prompt pair and returns the raw model text.
func (p *GroqProvider) Generate(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model": groqModel,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq: empty choice list")
	}
	return out.Choices[0].Message.Content, nil
}
