package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

// Anthropic generates SQL via the Messages API.
type Anthropic struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Provider = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{
		baseURL: defaultAnthropicBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Anthropic) Name() string {
	return fmt.Sprintf("anthropic (%s)", a.model)
}

func (a *Anthropic) GenerateSQL(ctx context.Context, req Request) (Response, error) {
	// The Messages API takes the system prompt as a top-level field, not a
	// message role.
	payload := map[string]any{
		"model":      a.model,
		"max_tokens": 4096,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": buildUserPrompt(req)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal messages payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read messages response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, string(rawBody))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode messages response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Response{}, fmt.Errorf("anthropic returned no text content")
	}

	return parseResponse(text.String()), nil
}
