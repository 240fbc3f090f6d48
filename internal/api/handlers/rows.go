package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/minimonday/backend/internal/apierr"
	"github.com/onnwee/minimonday/backend/internal/middleware"
	"github.com/onnwee/minimonday/backend/internal/store"
)

// RowStore is the data access the row endpoints need.
type RowStore interface {
	List(ctx context.Context, sheet string, q store.Query) ([]store.Row, error)
	Get(ctx context.Context, sheet, id string) (store.Row, error)
	Append(ctx context.Context, sheet string, row store.Row) (store.Row, error)
	Update(ctx context.Context, sheet, id string, fields store.Row, expectedVersion string) (store.Row, error)
	Delete(ctx context.Context, sheet, id, expectedVersion string) error
}

// RowsHandler serves CRUD over spreadsheet tabs.
type RowsHandler struct {
	store RowStore
}

// NewRowsHandler creates a new rows handler.
func NewRowsHandler(s RowStore) *RowsHandler {
	return &RowsHandler{store: s}
}

// ListResponse wraps a list of rows.
type ListResponse struct {
	Rows  []store.Row `json:"rows"`
	Count int         `json:"count"`
}

// UpdateRequest carries changed fields and the version the client last saw.
// An empty ExpectedVersion skips the conflict check.
type UpdateRequest struct {
	ExpectedVersion string    `json:"expectedVersion"`
	Fields          store.Row `json:"fields"`
}

// List returns rows of a tab. The scope query parameter narrows by scope
// column, every other parameter is an exact column filter.
// GET /api/sheets/{sheet}/rows
func (h *RowsHandler) List(w http.ResponseWriter, r *http.Request) {
	sheet := mux.Vars(r)["sheet"]
	q := store.Query{Filters: map[string]string{}}
	for k, v := range r.URL.Query() {
		if len(v) == 0 {
			continue
		}
		if k == "scope" {
			q.Scope = v[0]
			continue
		}
		q.Filters[k] = v[0]
	}

	rows, err := h.store.List(r.Context(), sheet, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Rows: rows, Count: len(rows)})
}

// Get returns a single row.
// GET /api/sheets/{sheet}/rows/{id}
func (h *RowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	row, err := h.store.Get(r.Context(), vars["sheet"], vars["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// Create appends a row. The body is a flat object of column to value.
// POST /api/sheets/{sheet}/rows
func (h *RowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var row store.Row
	if err := middleware.DecodeJSON(r, &row); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidFormat(err.Error()))
		return
	}
	if len(row) == 0 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("row"))
		return
	}

	created, err := h.store.Append(r.Context(), mux.Vars(r)["sheet"], row)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update changes fields of a row, rejecting the write when the row moved on
// since expectedVersion.
// PUT /api/sheets/{sheet}/rows/{id}
func (h *RowsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidFormat(err.Error()))
		return
	}
	if len(req.Fields) == 0 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("fields"))
		return
	}

	vars := mux.Vars(r)
	updated, err := h.store.Update(r.Context(), vars["sheet"], vars["id"], req.Fields, req.ExpectedVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete clears a row. The optional version query parameter enables the
// conflict check.
// DELETE /api/sheets/{sheet}/rows/{id}
func (h *RowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.store.Delete(r.Context(), vars["sheet"], vars["id"], r.URL.Query().Get("version")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
