// Package llm – GeminiProvider
//
// Primary AI backend (Google Gemini Flash). Uses responseMimeType
// "application/json" to push the model toward structured output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

// GeminiProvider calls the Gemini generateContent API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider constructs the provider with an injected HTTP client.
// Pass baseURL "" for the production endpoint.
func NewGeminiProvider(apiKey, baseURL string, client *http.Client) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name identifies this provider in the fallback order and in logs.
func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Generate sends the shared prompt pair and returns the raw model text.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"systemInstruction": geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		"contents":          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildUserPrompt(req)}}}},
		"generationConfig":  map[string]any{"responseMimeType": "application/json"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"?key="+p.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty candidate list")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
