// Package vectorindex maintains per-database vector embeddings of table
// schemas and answers similarity queries used for schema retrieval.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/querysmith/querysmith/internal/schema"
)

// Embedder produces an embedding vector for a text document.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index ties the vector store to an embedding backend and exposes
// table-level indexing and retrieval.
type Index struct {
	store    *Store
	embedder Embedder
	logger   *slog.Logger
}

// NewIndex creates an Index over the given store and embedder.
func NewIndex(store *Store, embedder Embedder, logger *slog.Logger) *Index {
	return &Index{store: store, embedder: embedder, logger: logger}
}

// IndexTables replaces the indexed schemas for a database with the given
// tables. Each table is rendered to a text document, embedded, and stored
// alongside its JSON form for later reconstruction.
func (ix *Index) IndexTables(ctx context.Context, databaseID string, tables []schema.Table) error {
	if err := ix.store.DeleteDatabase(ctx, databaseID); err != nil {
		return fmt.Errorf("clearing previous index: %w", err)
	}
	if len(tables) == 0 {
		return nil
	}

	records := make([]Record, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, t := range tables {
		g.Go(func() error {
			doc := schema.Render(t)
			vector, err := ix.embedder.Embed(gctx, doc)
			if err != nil {
				return fmt.Errorf("embedding table %s: %w", t.Name, err)
			}
			raw, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("marshaling table %s: %w", t.Name, err)
			}
			records[i] = Record{
				ID:         uuid.NewString(),
				DatabaseID: databaseID,
				TableName:  t.Name,
				Document:   doc,
				SchemaJSON: string(raw),
				Embedding:  vector,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ix.store.Insert(ctx, records); err != nil {
		return fmt.Errorf("storing embeddings: %w", err)
	}

	ix.logger.Info("indexed table schemas", "database_id", databaseID, "tables", len(tables))
	return nil
}

// SearchTables embeds the query and returns up to limit tables most similar
// to it within one database.
func (ix *Index) SearchTables(ctx context.Context, databaseID, query string, limit int) ([]schema.Table, error) {
	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored, err := ix.store.Search(ctx, databaseID, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	tables := make([]schema.Table, 0, len(scored))
	for _, r := range scored {
		var t schema.Table
		if err := json.Unmarshal([]byte(r.SchemaJSON), &t); err != nil {
			return nil, fmt.Errorf("decoding schema for %s: %w", r.TableName, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// RemoveTables drops all indexed schemas for a database.
func (ix *Index) RemoveTables(ctx context.Context, databaseID string) error {
	return ix.store.DeleteDatabase(ctx, databaseID)
}
