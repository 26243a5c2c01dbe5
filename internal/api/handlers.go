// Package api exposes a read-only status surface over the local store:
// collection counts, dirty/clean identifier sets, and the sync ledger.
// Reconciliation itself is a library and CLI concern; nothing here writes.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/hyperengineering/drift/internal/target"
	"github.com/hyperengineering/drift/internal/validation"
)

const defaultLedgerLimit = 100

// Handler implements the API handlers.
type Handler struct {
	store   store.Store
	target  *target.Target
	version string
}

// NewHandler creates a new Handler.
func NewHandler(s store.Store, t *target.Target, version string) *Handler {
	return &Handler{
		store:   s,
		target:  t,
		version: version,
	}
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CollectionStatus describes one collection's record counts.
type CollectionStatus struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Dirty int    `json:"dirty"`
}

// IDSetResponse is the body of the dirty/clean identifier endpoints.
type IDSetResponse struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
	Count      int      `json:"count"`
}

// LedgerResponse is the body of GET /api/v1/ledger.
type LedgerResponse struct {
	Entries []store.SyncLogEntry `json:"entries"`
}

// Health returns the health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "healthy", Version: h.version})
}

// Collections handles GET /api/v1/collections.
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Collections(r.Context())
	if err != nil {
		slog.Error("list collections failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "failed to list collections")
		return
	}

	out := make([]CollectionStatus, 0, len(names))
	for _, name := range names {
		count, err := h.store.CountRecords(r.Context(), name)
		if err != nil {
			slog.Error("count records failed", "collection", name, "error", err)
			WriteProblem(w, r, http.StatusInternalServerError, "failed to count records")
			return
		}
		dirty, err := h.target.DirtyRecordIDs(r.Context(), h.store, name)
		if err != nil {
			slog.Error("resolve dirty ids failed", "collection", name, "error", err)
			WriteProblem(w, r, http.StatusInternalServerError, "failed to resolve dirty records")
			return
		}
		out = append(out, CollectionStatus{Name: name, Count: count, Dirty: len(dirty)})
	}

	writeJSON(w, out)
}

// DirtyIDs handles GET /api/v1/collections/{collection}/dirty.
func (h *Handler) DirtyIDs(w http.ResponseWriter, r *http.Request) {
	h.idSet(w, r, h.target.DirtyRecordIDs)
}

// CleanIDs handles GET /api/v1/collections/{collection}/clean.
func (h *Handler) CleanIDs(w http.ResponseWriter, r *http.Request) {
	h.idSet(w, r, h.target.NonDirtyRecordIDs)
}

func (h *Handler) idSet(w http.ResponseWriter, r *http.Request,
	resolve func(ctx context.Context, st store.Store, collection string) ([]string, error)) {
	collection := chi.URLParam(r, "collection")
	if verr := validation.ValidateName("collection", collection); verr != nil {
		WriteProblem(w, r, http.StatusBadRequest, verr.Error())
		return
	}

	ids, err := resolve(r.Context(), h.store, collection)
	if err != nil {
		slog.Error("resolve ids failed", "collection", collection, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "failed to resolve record ids")
		return
	}

	writeJSON(w, IDSetResponse{Collection: collection, IDs: ids, Count: len(ids)})
}

// Ledger handles GET /api/v1/ledger?after=<id>&limit=<n>.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after != "" {
		if verr := validation.ValidateULID("after", after); verr != nil {
			WriteProblem(w, r, http.StatusBadRequest, verr.Error())
			return
		}
	}

	limit := defaultLedgerLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.store.SyncLogAfter(r.Context(), after, limit)
	if err != nil {
		slog.Error("read sync log failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "failed to read sync log")
		return
	}

	writeJSON(w, LedgerResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
