// Package llm turns natural-language questions into SQL using a pluggable
// chat-model backend. Providers share a single prompt contract: the model
// is asked to reply with a Reasoning: section followed by a SQL: section.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/querysmith/querysmith/internal/schema"
)

// Request carries everything a provider needs for one generation. PriorSQL
// and PriorError are set only on a corrective round, after a generated
// statement failed to execute.
type Request struct {
	Question   string
	Tables     []schema.Table
	PriorSQL   string
	PriorError string
}

// Corrective reports whether this request asks the model to repair a
// previously failed statement.
func (r Request) Corrective() bool {
	return r.PriorError != ""
}

// Response is the parsed model output.
type Response struct {
	Reasoning string
	SQL       string
}

// Provider generates SQL for a natural-language question.
type Provider interface {
	Name() string
	GenerateSQL(ctx context.Context, req Request) (Response, error)
}

// New builds a provider by name. The api key falls back to the provider's
// conventional environment variable when empty.
func New(provider, model, apiKey string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAI(OpenAIConfig{APIKey: apiKey, Model: model})
	case "anthropic":
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropic(apiKey, model), nil
	case "local":
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (supported: %s)", provider, strings.Join(SupportedProviders, ", "))
	}
}

// SupportedProviders lists the provider names accepted by New.
var SupportedProviders = []string{"openai", "anthropic", "local"}
