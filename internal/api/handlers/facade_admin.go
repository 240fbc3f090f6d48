package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/minimonday/backend/internal/apierr"
	"github.com/onnwee/minimonday/backend/internal/facade"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/store"
)

// FacadeAdminHandler exposes cache and circuit breaker controls.
type FacadeAdminHandler struct {
	facade facade.Facade
}

// NewFacadeAdminHandler creates a new façade admin handler.
func NewFacadeAdminHandler(f facade.Facade) *FacadeAdminHandler {
	return &FacadeAdminHandler{facade: f}
}

// GetStats returns the strategy, cache statistics and breaker states.
// GET /api/admin/facade
func (h *FacadeAdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.Stats())
}

// InvalidateCache drops cached results. With ?sheet= only that tab's entries
// go, otherwise ?prefix= is used verbatim; with neither the cache is emptied.
// POST /api/admin/cache/invalidate
func (h *FacadeAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if sheet := r.URL.Query().Get("sheet"); sheet != "" {
		prefix = store.ResourcePrefix(sheet)
	}
	removed := h.facade.Invalidate(prefix)
	logger.WithRequestID(r.Context()).Info("cache invalidated", "prefix", prefix, "removed", removed)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"prefix":  prefix,
		"removed": removed,
	})
}

// ListBreakers returns the state of every circuit breaker.
// GET /api/admin/breakers
func (h *FacadeAdminHandler) ListBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"breakers": h.facade.Stats().Breakers})
}

// ResetBreaker forces an endpoint's breaker closed.
// POST /api/admin/breakers/{endpoint}/reset
func (h *FacadeAdminHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	endpoint := mux.Vars(r)["endpoint"]
	if !h.facade.ResetBreaker(endpoint) {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("circuit breaker"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "endpoint": endpoint})
}
