package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/querysmith/querysmith/internal/llm"
)

func handleListModels(admin ModelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := admin.List()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing models: %v", err)
			return
		}
		// API keys stay server-side.
		for i := range entries {
			entries[i].APIKey = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": entries})
	}
}

func handleAddModel(admin ModelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var entry llm.Entry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.Provider) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id and provider are required")
			return
		}

		if err := admin.Add(entry); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "registering model: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": entry.ID})
	}
}

func handleRemoveModel(admin ModelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := admin.Remove(id); err != nil {
			switch {
			case errors.Is(err, llm.ErrModelNotFound):
				httpError(w, http.StatusNotFound, "not_found", "model %s is not registered", id)
			case errors.Is(err, llm.ErrLastModel):
				httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
			default:
				httpError(w, http.StatusInternalServerError, "api_error", "removing model: %v", err)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": llm.SupportedProviders})
}
