package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querysmith/querysmith/internal/schema"
)

// searchLimit is the number of candidate tables requested from the
// similarity index.
const searchLimit = 5

// SchemaRetriever resolves the candidate tables for a query. It tries the
// similarity index first and falls back to the database's full table list;
// index failures are absorbed here and never reach the caller.
type SchemaRetriever struct {
	searcher SchemaSearcher
	catalog  DatabaseCatalog
	logger   *slog.Logger
}

// NewSchemaRetriever creates a retriever over the given index and catalog.
func NewSchemaRetriever(searcher SchemaSearcher, catalog DatabaseCatalog, logger *slog.Logger) *SchemaRetriever {
	return &SchemaRetriever{searcher: searcher, catalog: catalog, logger: logger}
}

// Retrieve returns the candidate tables for a query. The returned slice is
// empty only when the database itself has no tables. An error is returned
// only when the fallback introspection fails.
func (r *SchemaRetriever) Retrieve(ctx context.Context, query, databaseID string) ([]schema.Table, error) {
	tables, err := r.searcher.SearchTables(ctx, databaseID, query, searchLimit)
	if err == nil && len(tables) > 0 {
		return tables, nil
	}
	if err != nil {
		r.logger.Warn("schema search failed, falling back to full table list", "database_id", databaseID, "error", err)
	}

	full, err := r.catalog.Tables(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("listing tables for %s: %w", databaseID, err)
	}
	return full, nil
}
