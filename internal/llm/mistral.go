// Package llm – MistralProvider
//
// Last fallback backend. Same OpenAI-compatible chat shape as Groq, on the
// Mistral platform API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1/chat/completions"
	mistralModel          = "mistral-small-latest"
)

// MistralProvider calls the Mistral chat-completions API.
type MistralProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewMistralProvider constructs the provider with an injected HTTP client.
// Pass baseURL "" for the production endpoint.
func NewMistralProvider(apiKey, baseURL string, client *http.Client) *MistralProvider {
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	return &MistralProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name identifies this provider in the fallback order and in logs.
func (p *MistralProvider) Name() string { return "mistral" }

// Generate sends the shared prompt pair and returns the raw model text.
func (p *MistralProvider) Generate(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model": mistralModel,
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
		return "", fmt.Errorf("mistral: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("mistral: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("mistral: empty choice list")
	}
	return out.Choices[0].Message.Content, nil
}
