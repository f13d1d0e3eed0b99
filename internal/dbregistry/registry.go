// Package dbregistry manages database registrations in a JSON file under the
// data directory. Registrations hold the connection details the pipeline
// resolves at query time; table schemas are never cached here, they are
// introspected on demand.
//
// The file is read and written without locking. Concurrent mutating calls
// (Add/Remove from parallel requests) can race and lose updates; callers
// needing stronger consistency must serialize writes themselves.
package dbregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/querysmith/querysmith/internal/dbadapter"
	"github.com/querysmith/querysmith/internal/schema"
)

// ErrNotFound is returned when no registration matches the given id.
var ErrNotFound = errors.New("database not found")

// Entry is one stored database registration.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	DSN         string `json:"dsn"`
	Description string `json:"description,omitempty"`
}

// Summary is the listing form of a registration, without the DSN.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Connected   bool   `json:"connected"`
}

// Indexer receives table schemas for semantic search. Index failures are
// logged, never fatal: the registry works without a vector index.
type Indexer interface {
	IndexTables(ctx context.Context, databaseID string, tables []schema.Table) error
	RemoveTables(ctx context.Context, databaseID string) error
}

// Registry stores database registrations and mediates adapter access.
type Registry struct {
	path    string
	indexer Indexer
	open    func(dbType, dsn string) (dbadapter.Adapter, error)
}

// New creates a Registry persisting to dataDir/databases.json. indexer may
// be nil to disable schema indexing.
func New(dataDir string, indexer Indexer) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	r := &Registry{
		path:    filepath.Join(dataDir, "databases.json"),
		indexer: indexer,
		open:    dbadapter.New,
	}
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.save([]Entry{}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add validates the connection, persists the registration, then introspects
// and indexes its tables. Returns the new registration id.
func (r *Registry) Add(ctx context.Context, name, dbType, dsn, description string) (string, error) {
	adapter, err := r.open(dbType, dsn)
	if err != nil {
		return "", err
	}
	defer adapter.Close()

	if err := adapter.TestConnection(ctx); err != nil {
		return "", err
	}

	entry := Entry{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        dbType,
		DSN:         dsn,
		Description: description,
	}

	entries, err := r.load()
	if err != nil {
		return "", err
	}
	entries = append(entries, entry)
	if err := r.save(entries); err != nil {
		return "", err
	}

	r.indexSchemas(ctx, adapter, entry.ID)

	return entry.ID, nil
}

// indexSchemas introspects and indexes a database's tables, logging failures.
func (r *Registry) indexSchemas(ctx context.Context, adapter dbadapter.Adapter, id string) {
	if r.indexer == nil {
		return
	}
	tables, err := adapter.TableSchemas(ctx)
	if err != nil {
		slog.Error("introspecting tables for indexing", "database_id", id, "error", err)
		return
	}
	if err := r.indexer.IndexTables(ctx, id, tables); err != nil {
		slog.Error("indexing tables", "database_id", id, "error", err)
	}
}

// List returns all registrations in stored order.
func (r *Registry) List(ctx context.Context) ([]Summary, error) {
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, len(entries))
	for i, e := range entries {
		summaries[i] = Summary{
			ID:          e.ID,
			Name:        e.Name,
			Type:        e.Type,
			Description: e.Description,
			Connected:   true,
		}
	}
	return summaries, nil
}

// Get returns the stored registration for id.
func (r *Registry) Get(id string) (Entry, error) {
	entries, err := r.load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Info introspects the database and returns a full snapshot with tables.
func (r *Registry) Info(ctx context.Context, id string) (*schema.Database, error) {
	entry, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	tables, err := r.Tables(ctx, id)
	if err != nil {
		return nil, err
	}

	return &schema.Database{
		ID:          entry.ID,
		Name:        entry.Name,
		Type:        entry.Type,
		Description: entry.Description,
		Tables:      tables,
	}, nil
}

// Tables introspects and returns the database's table schemas.
func (r *Registry) Tables(ctx context.Context, id string) ([]schema.Table, error) {
	entry, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	adapter, err := r.open(entry.Type, entry.DSN)
	if err != nil {
		return nil, err
	}
	defer adapter.Close()

	return adapter.TableSchemas(ctx)
}

// Remove deletes the registration and best-effort removes its vector entries.
func (r *Registry) Remove(ctx context.Context, id string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}

	for i, e := range entries {
		if e.ID != id {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if err := r.save(entries); err != nil {
			return err
		}
		if r.indexer != nil {
			if err := r.indexer.RemoveTables(ctx, id); err != nil {
				slog.Error("removing tables from vector index", "database_id", id, "error", err)
			}
		}
		return nil
	}

	return ErrNotFound
}

// Bootstrap ensures at least one database is registered. With existing
// registrations it re-indexes the first one's tables; otherwise it registers
// a default from defaultURL/defaultType. Returns the id of the database that
// was registered or refreshed.
func (r *Registry) Bootstrap(ctx context.Context, defaultURL, defaultType string) (string, error) {
	entries, err := r.load()
	if err != nil {
		return "", err
	}

	if len(entries) > 0 {
		entry := entries[0]
		slog.Info("reindexing tables for existing database", "database_id", entry.ID)
		adapter, err := r.open(entry.Type, entry.DSN)
		if err != nil {
			slog.Error("opening adapter for reindex", "database_id", entry.ID, "error", err)
			return entry.ID, nil
		}
		defer adapter.Close()
		r.indexSchemas(ctx, adapter, entry.ID)
		return entry.ID, nil
	}

	slog.Info("no databases registered, adding default connection")
	id, err := r.Add(ctx, "Default Database", defaultType, defaultURL, "Default connection from environment")
	if err != nil {
		return "", fmt.Errorf("registering default database: %w", err)
	}
	return id, nil
}

func (r *Registry) load() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading database registry: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing database registry: %w", err)
	}
	return entries, nil
}

func (r *Registry) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding database registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("writing database registry: %w", err)
	}
	return nil
}
