package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querysmith/querysmith/internal/schema"
)

func TestOpenAIGenerateSQL(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "Reasoning: counted rows\nSQL: SELECT COUNT(*) FROM users"}},
			},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	resp, err := p.GenerateSQL(context.Background(), Request{
		Question: "how many users are there",
		Tables:   []schema.Table{{Name: "users", Columns: []schema.Column{{Name: "id", DataType: "integer"}}}},
	})
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if resp.SQL != "SELECT COUNT(*) FROM users" {
		t.Errorf("sql = %q", resp.SQL)
	}
	if resp.Reasoning != "counted rows" {
		t.Errorf("reasoning = %q", resp.Reasoning)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPayload["model"] != "gpt-4o" {
		t.Errorf("model = %v", gotPayload["model"])
	}
}

func TestOpenAICorrectivePromptIncludesError(t *testing.T) {
	var userContent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		for _, m := range payload.Messages {
			if m.Role == "user" {
				userContent = m.Content
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "Reasoning: fixed\nSQL: SELECT name FROM users"}},
			},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	_, err = p.GenerateSQL(context.Background(), Request{
		Question:   "list user names",
		Tables:     []schema.Table{{Name: "users"}},
		PriorSQL:   "SELECT nam FROM users",
		PriorError: `column "nam" does not exist`,
	})
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if !strings.Contains(userContent, "SELECT nam FROM users") {
		t.Errorf("prompt missing failed statement: %q", userContent)
	}
	if !strings.Contains(userContent, `column "nam" does not exist`) {
		t.Errorf("prompt missing database error: %q", userContent)
	}
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	if _, err := p.GenerateSQL(context.Background(), Request{Question: "q"}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNewFactoryUnsupported(t *testing.T) {
	if _, err := New("cohere", "", ""); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
