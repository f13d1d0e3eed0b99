// Package api exposes the query pipeline and the database/model
// registries over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/pipeline"
	"github.com/querysmith/querysmith/internal/schema"
)

const maxRequestBodySize = 1 << 20 // 1MB

// QueryProcessor runs one natural-language query end to end.
type QueryProcessor interface {
	Process(ctx context.Context, req pipeline.Request) *pipeline.QueryResponse
}

// DatabaseAdmin is the registry surface the HTTP layer consumes.
type DatabaseAdmin interface {
	Add(ctx context.Context, name, dbType, dsn, description string) (string, error)
	List(ctx context.Context) ([]dbregistry.Summary, error)
	Info(ctx context.Context, id string) (*schema.Database, error)
	Tables(ctx context.Context, id string) ([]schema.Table, error)
	Remove(ctx context.Context, id string) error
}

// ModelAdmin manages model registrations.
type ModelAdmin interface {
	List() ([]llm.Entry, error)
	Add(e llm.Entry) error
	Remove(id string) error
}

// Deps holds the collaborators behind the HTTP handlers.
type Deps struct {
	Processor QueryProcessor
	Databases DatabaseAdmin
	Models    ModelAdmin
}

// NewHandler returns the service's HTTP routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Post("/api/queries", handleQuery(deps.Processor))

	r.Get("/api/databases", handleListDatabases(deps.Databases))
	r.Post("/api/databases", handleAddDatabase(deps.Databases))
	r.Get("/api/databases/{id}", handleDatabaseInfo(deps.Databases))
	r.Get("/api/databases/{id}/tables", handleDatabaseTables(deps.Databases))
	r.Delete("/api/databases/{id}", handleRemoveDatabase(deps.Databases))

	r.Get("/api/models", handleListModels(deps.Models))
	r.Post("/api/models", handleAddModel(deps.Models))
	r.Delete("/api/models/{id}", handleRemoveModel(deps.Models))
	r.Get("/api/models/providers", handleProviders)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleQuery(p QueryProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		// Process never fails; the response carries its own success flag.
		writeJSON(w, http.StatusOK, p.Process(r.Context(), req))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
