package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrModelNotFound is returned when no registered model matches a lookup.
var ErrModelNotFound = errors.New("model not found")

// ErrLastModel is returned when removal would leave the registry empty.
var ErrLastModel = errors.New("cannot remove the last registered model")

// Entry is one registered model configuration.
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
}

// Registry keeps model configurations in a JSON file and builds providers
// on demand. A missing file is seeded with a default OpenAI entry so the
// service is usable immediately after first start.
type Registry struct {
	mu   sync.Mutex
	path string

	// newProvider is replaced in tests.
	newProvider func(e Entry) (Provider, error)
}

// NewRegistry loads or creates the model registry under dataDir.
func NewRegistry(dataDir, defaultProvider string) (*Registry, error) {
	r := &Registry{
		path: filepath.Join(dataDir, "llms.json"),
		newProvider: func(e Entry) (Provider, error) {
			return New(e.Provider, e.Model, e.APIKey)
		},
	}

	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.save([]Entry{defaultEntry(defaultProvider)}); err != nil {
			return nil, fmt.Errorf("seeding model registry: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking model registry: %w", err)
	}

	return r, nil
}

func defaultEntry(provider string) Entry {
	switch provider {
	case "anthropic":
		return Entry{ID: "default", Name: "Claude Sonnet", Provider: "anthropic", Model: "claude-sonnet-4-20250514"}
	case "local":
		return Entry{ID: "default", Name: "Local", Provider: "local", Model: "local"}
	default:
		return Entry{ID: "default", Name: "GPT-4o", Provider: "openai", Model: "gpt-4o"}
	}
}

// List returns all registered models.
func (r *Registry) List() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add registers a model. The provider name must be supported.
func (r *Registry) Add(e Entry) error {
	if !supportedProvider(e.Provider) {
		return fmt.Errorf("unsupported llm provider %q (supported: %s)", e.Provider, strings.Join(SupportedProviders, ", "))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range entries {
		if existing.ID == e.ID {
			return fmt.Errorf("model %q is already registered", e.ID)
		}
	}
	entries = append(entries, e)
	return r.save(entries)
}

// Remove deletes a model by ID. The final model cannot be removed so query
// processing always has a configuration to fall back on.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, e := range entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	if len(entries) == 1 {
		return ErrLastModel
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	return r.save(entries)
}

// Resolve picks a model entry by selector. The selector is matched against
// entry IDs first, then provider names; an empty or unmatched selector
// falls back to the first registered model.
func (r *Registry) Resolve(selector string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrModelNotFound
	}

	for _, e := range entries {
		if e.ID == selector {
			return e, nil
		}
	}
	for _, e := range entries {
		if e.Provider == selector {
			return e, nil
		}
	}
	return entries[0], nil
}

// Provider resolves a selector and builds the corresponding provider.
func (r *Registry) Provider(selector string) (Provider, Entry, error) {
	entry, err := r.Resolve(selector)
	if err != nil {
		return nil, Entry{}, err
	}
	p, err := r.newProvider(entry)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("building provider for model %s: %w", entry.ID, err)
	}
	return p, entry, nil
}

func (r *Registry) load() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading model registry: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing model registry: %w", err)
	}
	return entries, nil
}

func (r *Registry) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding model registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("writing model registry: %w", err)
	}
	return nil
}

func supportedProvider(name string) bool {
	for _, p := range SupportedProviders {
		if p == name {
			return true
		}
	}
	return false
}
