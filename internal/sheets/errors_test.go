package sheets

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/onnwee/minimonday/backend/internal/httpx"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		wantType      ErrorType
		wantRetryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", ErrorRateLimited, true},
		{"not found", http.StatusNotFound, "", ErrorNotFound, false},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`, ErrorForbidden, false},
		{"quota via 403", http.StatusForbidden, `{"error":{"code":403,"status":"RESOURCE_EXHAUSTED"}}`, ErrorRateLimited, false},
		{"unauthorized", http.StatusUnauthorized, "", ErrorUnauthorized, false},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"Unable to parse range: Nope!A1"}}`, ErrorBadRequest, false},
		{"internal", http.StatusInternalServerError, "", ErrorServerError, true},
		{"unavailable", http.StatusServiceUnavailable, "not json", ErrorServerError, true},
		{"teapot", http.StatusTeapot, "", ErrorBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError(tt.statusCode, []byte(tt.body))
			if err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", err.Type, tt.wantType)
			}
			if err.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.wantRetryable)
			}
			if err.HTTPStatus() != tt.statusCode {
				t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus(), tt.statusCode)
			}
			if err.Error() == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestFromTransport(t *testing.T) {
	plain := errors.New("connection reset")
	if got := fromTransport(plain); got != plain {
		t.Fatalf("network errors must pass through unchanged, got %v", got)
	}

	got := fromTransport(&httpx.StatusError{StatusCode: 429, RetryAfter: 2 * time.Second})
	var apiErr *APIError
	if !errors.As(got, &apiErr) {
		t.Fatalf("expected *APIError, got %T", got)
	}
	if apiErr.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter not carried over: %v", apiErr.RetryAfter)
	}
}

func TestIsPermanent(t *testing.T) {
	if IsPermanent(nil) {
		t.Error("nil is not permanent")
	}
	if !IsPermanent(&APIError{Type: ErrorNotFound}) {
		t.Error("not found is permanent")
	}
	if IsPermanent(&APIError{Type: ErrorServerError}) {
		t.Error("server errors are transient")
	}
}

func TestIsBadRequest(t *testing.T) {
	wrapped := fmt.Errorf("list Missing: %w", &APIError{Type: ErrorBadRequest, StatusCode: http.StatusBadRequest})
	if !IsBadRequest(wrapped) {
		t.Error("wrapped 400 should be a bad request")
	}
	if IsBadRequest(&APIError{Type: ErrorNotFound}) || IsBadRequest(errors.New("boom")) {
		t.Error("only 400s are bad requests")
	}
}

func TestErrorTypeString(t *testing.T) {
	if ErrorRateLimited.String() != "rate_limited" || ErrorType(99).String() != "unknown" {
		t.Error("unexpected ErrorType names")
	}
}
