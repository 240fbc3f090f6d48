package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/minimonday/backend/internal/apierr"
	"github.com/onnwee/minimonday/backend/internal/cache"
	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
	"github.com/onnwee/minimonday/backend/internal/facade"
	"github.com/onnwee/minimonday/backend/internal/retry"
	"github.com/onnwee/minimonday/backend/internal/sheets"
	"github.com/onnwee/minimonday/backend/internal/store"
)

type fakeStore struct {
	listQuery  store.Query
	rows       []store.Row
	err        error
	appended   store.Row
	updateReq  UpdateRequest
	deletedVer string
}

func (f *fakeStore) List(ctx context.Context, sheet string, q store.Query) ([]store.Row, error) {
	f.listQuery = q
	return f.rows, f.err
}

func (f *fakeStore) Get(ctx context.Context, sheet, id string) (store.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r["id"] == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("get %s/%s: %w", sheet, id, store.ErrNotFound)
}

func (f *fakeStore) Append(ctx context.Context, sheet string, row store.Row) (store.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.appended = row
	out := store.Row{"id": "new-id", "updatedAt": "v1"}
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, sheet, id string, fields store.Row, expectedVersion string) (store.Row, error) {
	f.updateReq = UpdateRequest{ExpectedVersion: expectedVersion, Fields: fields}
	if f.err != nil {
		return nil, f.err
	}
	return store.Row{"id": id, "updatedAt": "v2", "title": fields["title"]}, nil
}

func (f *fakeStore) Delete(ctx context.Context, sheet, id, expectedVersion string) error {
	f.deletedVer = expectedVersion
	return f.err
}

func serve(h http.HandlerFunc, method, target, body string, vars map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = mux.SetURLVars(req, vars)
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *apierr.Error {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestRows_ListSplitsScopeAndFilters(t *testing.T) {
	fs := &fakeStore{rows: []store.Row{{"id": "1", "status": "open"}}}
	h := NewRowsHandler(fs)

	rr := serve(h.List, http.MethodGet, "/api/sheets/Tasks/rows?scope=team-a&status=open", "", map[string]string{"sheet": "Tasks"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "team-a", fs.listQuery.Scope)
	assert.Equal(t, map[string]string{"status": "open"}, fs.listQuery.Filters)

	var out ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "open", out.Rows[0]["status"])
}

func TestRows_ListEmptyIsArray(t *testing.T) {
	h := NewRowsHandler(&fakeStore{})
	rr := serve(h.List, http.MethodGet, "/api/sheets/Tasks/rows", "", map[string]string{"sheet": "Tasks"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"rows":[],"count":0}`, rr.Body.String())
}

func TestRows_GetNotFound(t *testing.T) {
	h := NewRowsHandler(&fakeStore{})
	rr := serve(h.Get, http.MethodGet, "/api/sheets/Tasks/rows/missing", "", map[string]string{"sheet": "Tasks", "id": "missing"})

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.ErrResourceNotFound, decodeError(t, rr).Code)
}

func TestRows_Create(t *testing.T) {
	fs := &fakeStore{}
	h := NewRowsHandler(fs)
	rr := serve(h.Create, http.MethodPost, "/api/sheets/Tasks/rows", `{"title":"Write docs"}`, map[string]string{"sheet": "Tasks"})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Write docs", fs.appended["title"])

	var out store.Row
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "new-id", out["id"])
}

func TestRows_CreateRejectsBadBodies(t *testing.T) {
	h := NewRowsHandler(&fakeStore{})
	for _, body := range []string{`{"title":`, `{}`, `{"n":1}`} {
		rr := serve(h.Create, http.MethodPost, "/api/sheets/Tasks/rows", body, map[string]string{"sheet": "Tasks"})
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestRows_UpdatePassesExpectedVersion(t *testing.T) {
	fs := &fakeStore{}
	h := NewRowsHandler(fs)
	rr := serve(h.Update, http.MethodPut, "/api/sheets/Tasks/rows/7",
		`{"expectedVersion":"2024-01-01T00:00:00Z","fields":{"title":"Renamed"}}`,
		map[string]string{"sheet": "Tasks", "id": "7"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-01-01T00:00:00Z", fs.updateReq.ExpectedVersion)
	assert.Equal(t, "Renamed", fs.updateReq.Fields["title"])
}

func TestRows_UpdateConflict(t *testing.T) {
	h := NewRowsHandler(&fakeStore{err: store.ErrVersionConflict})
	rr := serve(h.Update, http.MethodPut, "/api/sheets/Tasks/rows/7",
		`{"expectedVersion":"old","fields":{"title":"x"}}`,
		map[string]string{"sheet": "Tasks", "id": "7"})

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.ErrResourceConflict, decodeError(t, rr).Code)
}

func TestRows_Delete(t *testing.T) {
	fs := &fakeStore{}
	h := NewRowsHandler(fs)
	rr := serve(h.Delete, http.MethodDelete, "/api/sheets/Tasks/rows/7?version=v3", "", map[string]string{"sheet": "Tasks", "id": "7"})

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "v3", fs.deletedVer)
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      apierr.ErrorCode
		retryable bool
	}{
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, apierr.ErrResourceNotFound, false},
		{"missing tab", &sheets.APIError{Type: sheets.ErrorNotFound, StatusCode: 404}, http.StatusNotFound, apierr.ErrResourceNotFound, false},
		{"conflict", store.ErrVersionConflict, http.StatusConflict, apierr.ErrResourceConflict, false},
		{"bad sheet", store.ErrInvalidSheet, http.StatusBadRequest, apierr.ErrValidationInvalidValue, false},
		{"no header", fmt.Errorf("list Empty: %w", store.ErrNoHeader), http.StatusBadRequest, apierr.ErrValidationInvalidValue, false},
		{"unknown tab", &sheets.APIError{Type: sheets.ErrorBadRequest, StatusCode: 400}, http.StatusBadRequest, apierr.ErrValidationInvalidValue, false},
		{"bad row", fmt.Errorf("%w: unknown column", store.ErrInvalidRow), http.StatusBadRequest, apierr.ErrValidationInvalidFormat, false},
		{"circuit open", fmt.Errorf("list: %w", circuitbreaker.ErrCircuitOpen), http.StatusServiceUnavailable, apierr.ErrSystemUnavailable, true},
		{"deadline", context.DeadlineExceeded, http.StatusRequestTimeout, apierr.ErrSystemTimeout, false},
		{"exhausted 503", &sheets.APIError{Type: sheets.ErrorServerError, StatusCode: 503, Retryable: true}, http.StatusServiceUnavailable, apierr.ErrSystemUnavailable, true},
		{"forbidden upstream", &sheets.APIError{Type: sheets.ErrorForbidden, StatusCode: 403}, http.StatusBadGateway, apierr.ErrSystemUpstream, false},
		{"unknown", errors.New("boom"), http.StatusBadGateway, apierr.ErrSystemUpstream, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAPIError(tt.err)
			assert.Equal(t, tt.status, got.Status())
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}
}

func trippedFacade(t *testing.T) facade.Facade {
	t.Helper()
	reg := circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 1})
	_ = reg.Get(store.EndpointRead).Execute(func() error { return errors.New("down") })
	require.Equal(t, circuitbreaker.StateOpen, reg.Get(store.EndpointRead).State())
	return facade.NewResilient(cache.NewLRU(cache.Options{}), reg, retry.Options{MaxRetries: -1}, false)
}

func TestFacadeAdmin_InvalidateBySheet(t *testing.T) {
	f := facade.NewResilient(cache.NewLRU(cache.Options{}), circuitbreaker.NewRegistry(circuitbreaker.Config{}), retry.Options{MaxRetries: -1}, false)
	load := func(ctx context.Context) (any, error) { return "v", nil }
	_, _ = f.FetchThroughCache(context.Background(), store.EndpointRead, store.Key("Tasks", "all"), load)
	_, _ = f.FetchThroughCache(context.Background(), store.EndpointRead, store.Key("People", "all"), load)

	h := NewFacadeAdminHandler(f)
	rr := serve(h.InvalidateCache, http.MethodPost, "/api/admin/cache/invalidate?sheet=Tasks", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, float64(1), out["removed"])
	assert.Equal(t, int64(1), f.Stats().Cache.Items)
}

func TestFacadeAdmin_Breakers(t *testing.T) {
	f := trippedFacade(t)
	h := NewFacadeAdminHandler(f)

	rr := serve(h.ListBreakers, http.MethodGet, "/api/admin/breakers", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"open"`)

	rr = serve(h.ResetBreaker, http.MethodPost, "/api/admin/breakers/sheets.read/reset", "", map[string]string{"endpoint": store.EndpointRead})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "closed", f.Stats().Breakers[0].State)

	rr = serve(h.ResetBreaker, http.MethodPost, "/api/admin/breakers/nope/reset", "", map[string]string{"endpoint": "nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFacadeAdmin_Stats(t *testing.T) {
	h := NewFacadeAdminHandler(facade.NoOp{})
	rr := serve(h.GetStats, http.MethodGet, "/api/admin/facade", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var out facade.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, facade.StrategyNoOp, out.Strategy)
	assert.Nil(t, out.Cache)
}
