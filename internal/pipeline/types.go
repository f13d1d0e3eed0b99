// Package pipeline implements the query-processing core: schema retrieval
// with fallback, SQL generation with one corrective retry, conditional
// execution, and assembly of a per-request trace.
package pipeline

import (
	"context"

	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/schema"
)

// Request is one natural-language query submission. DatabaseID and ModelID
// are optional; empty values select the first registered entry.
type Request struct {
	Query      string `json:"query"`
	Execute    bool   `json:"execute"`
	DatabaseID string `json:"database_id,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
}

// ExecutionOutcome is the tabular result of a successfully executed query.
// Non-row-returning statements produce empty columns and rows.
type ExecutionOutcome struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// Trace records every decision made while processing one request. It is
// owned by the processor for the duration of the request and returned as
// part of the response.
type Trace struct {
	Reasoning        string         `json:"reasoning"`
	RetrievedSchemas []schema.Table `json:"retrieved_schemas"`
	GeneratedSQL     string         `json:"generated_sql"`
	Errors           []string       `json:"errors"`
	Attempts         int            `json:"attempts"`
}

// QueryResponse is the sole output of one processing run. Exactly one is
// produced per request, success or failure.
type QueryResponse struct {
	Query      string            `json:"query"`
	SQL        string            `json:"sql"`
	Result     *ExecutionOutcome `json:"result,omitempty"`
	DatabaseID string            `json:"database_id"`
	Provider   string            `json:"llm_provider"`
	Trace      Trace             `json:"trace"`
	Error      string            `json:"error,omitempty"`
	Success    bool              `json:"success"`
}

// DatabaseCatalog is the registry surface the pipeline consumes.
type DatabaseCatalog interface {
	List(ctx context.Context) ([]dbregistry.Summary, error)
	Get(id string) (dbregistry.Entry, error)
	Tables(ctx context.Context, id string) ([]schema.Table, error)
}

// SchemaSearcher is the vector-index surface the pipeline consumes.
type SchemaSearcher interface {
	SearchTables(ctx context.Context, databaseID, query string, limit int) ([]schema.Table, error)
}

// ModelCatalog resolves a model selector to a generation provider.
type ModelCatalog interface {
	Provider(selector string) (llm.Provider, llm.Entry, error)
}
