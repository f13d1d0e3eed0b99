package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/querysmith/querysmith/internal/dbadapter"
	"github.com/querysmith/querysmith/internal/dbregistry"
)

type addDatabaseRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DSN         string `json:"dsn"`
	Description string `json:"description,omitempty"`
}

func handleListDatabases(admin DatabaseAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := admin.List(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing databases: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"databases": summaries})
	}
}

func handleAddDatabase(admin DatabaseAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req addDatabaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.DSN) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name and dsn are required")
			return
		}

		id, err := admin.Add(r.Context(), req.Name, req.Type, req.DSN, req.Description)
		if err != nil {
			var connErr *dbadapter.ConnectionError
			if errors.As(err, &connErr) {
				httpError(w, http.StatusBadRequest, "connection_error", "database unreachable: %v", err)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "registering database: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.Name})
	}
}

func handleDatabaseInfo(admin DatabaseAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		info, err := admin.Info(r.Context(), id)
		if err != nil {
			if errors.Is(err, dbregistry.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "database %s is not registered", id)
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "introspecting database: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func handleDatabaseTables(admin DatabaseAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		tables, err := admin.Tables(r.Context(), id)
		if err != nil {
			if errors.Is(err, dbregistry.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "database %s is not registered", id)
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "listing tables: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
	}
}

func handleRemoveDatabase(admin DatabaseAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := admin.Remove(r.Context(), id); err != nil {
			if errors.Is(err, dbregistry.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "database %s is not registered", id)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "removing database: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
