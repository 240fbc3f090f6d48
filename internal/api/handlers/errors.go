package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/minimonday/backend/internal/apierr"
	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/retry"
	"github.com/onnwee/minimonday/backend/internal/sheets"
	"github.com/onnwee/minimonday/backend/internal/store"
)

// toAPIError maps data-access failures onto the structured error envelope.
// An open circuit and exhausted transient failures surface as 503 so clients
// know the same request may succeed later.
func toAPIError(err error) *apierr.Error {
	switch {
	case errors.Is(err, store.ErrNotFound), sheets.IsNotFound(err):
		return apierr.ResourceNotFound("row")
	case errors.Is(err, store.ErrVersionConflict):
		return apierr.ResourceConflict("Row was modified since it was read; reload and retry")
	case errors.Is(err, store.ErrInvalidSheet), errors.Is(err, store.ErrNoHeader), sheets.IsBadRequest(err):
		return apierr.ValidationInvalidValue("sheet", err.Error())
	case errors.Is(err, store.ErrInvalidRow):
		return apierr.ValidationInvalidFormat(err.Error())
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apierr.SystemUnavailable("Spreadsheet backend is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.SystemTimeout("Spreadsheet backend timed out")
	case retry.DefaultRetryable(err):
		return apierr.SystemUnavailable("Spreadsheet backend is temporarily unavailable")
	default:
		return apierr.SystemUpstream("Spreadsheet backend request failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	log := logger.WithRequestID(r.Context())
	if apiErr.Status() >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err, "code", apiErr.Code)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "error", err, "code", apiErr.Code)
	}
	apierr.WriteErrorWithContext(w, r, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
