package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/minimonday/backend/internal/httpx"
)

// ErrorType represents different classes of Sheets API errors
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorNotFound
	ErrorForbidden
	ErrorServerError
	ErrorBadRequest
	ErrorUnauthorized
)

func (t ErrorType) String() string {
	switch t {
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorNotFound:
		return "not_found"
	case ErrorForbidden:
		return "forbidden"
	case ErrorServerError:
		return "server_error"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// APIError represents a Sheets API error with additional context
type APIError struct {
	Type       ErrorType
	StatusCode int
	Status     string // Google RPC status, e.g. PERMISSION_DENIED
	Message    string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus lets the retry policy classify the error.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// googleErrorResponse is the JSON error envelope used by Google APIs.
type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifyError determines the type of error from a status code and body.
func ClassifyError(statusCode int, body []byte) *APIError {
	var gErr googleErrorResponse
	_ = json.Unmarshal(body, &gErr)

	apiErr := &APIError{
		StatusCode: statusCode,
		Type:       ErrorUnknown,
		Status:     gErr.Error.Status,
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		apiErr.Type = ErrorRateLimited
		apiErr.Message = "rate limited by Sheets API"
		apiErr.Retryable = true

	case http.StatusNotFound:
		apiErr.Type = ErrorNotFound
		apiErr.Message = "spreadsheet or range not found (404)"

	case http.StatusForbidden:
		apiErr.Type = ErrorForbidden
		apiErr.Message = "forbidden (403)"
		// Quota exhaustion is reported as 403 by some Google endpoints
		if gErr.Error.Status == "RESOURCE_EXHAUSTED" {
			apiErr.Type = ErrorRateLimited
			apiErr.Message = "quota exhausted"
		}

	case http.StatusUnauthorized:
		apiErr.Type = ErrorUnauthorized
		apiErr.Message = "unauthorized (401) - check service account credentials"

	case http.StatusBadRequest:
		apiErr.Type = ErrorBadRequest
		apiErr.Message = "bad request (400)"

	default:
		if statusCode >= 500 {
			apiErr.Type = ErrorServerError
			apiErr.Message = fmt.Sprintf("Sheets server error (%d)", statusCode)
			apiErr.Retryable = true
		} else if statusCode >= 400 {
			apiErr.Type = ErrorBadRequest
			apiErr.Message = fmt.Sprintf("client error (%d)", statusCode)
		} else {
			apiErr.Message = fmt.Sprintf("unexpected status %d", statusCode)
		}
	}

	if gErr.Error.Message != "" {
		apiErr.Message += ": " + gErr.Error.Message
	}

	return apiErr
}

// fromTransport converts non-2xx responses into *APIError and leaves
// network errors untouched.
func fromTransport(err error) error {
	var se *httpx.StatusError
	if !errors.As(err, &se) {
		return err
	}
	apiErr := ClassifyError(se.StatusCode, []byte(se.Body))
	apiErr.RetryAfter = se.RetryAfter
	return apiErr
}

// IsNotFound reports whether err is a 404 from the Sheets API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorNotFound
}

// IsBadRequest reports whether err is a 400 from the Sheets API, which is what
// it returns for a range naming a tab that does not exist.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorBadRequest
}

// IsPermanent checks if an error is permanent (should not be retried)
func IsPermanent(err *APIError) bool {
	if err == nil {
		return false
	}
	return err.Type == ErrorNotFound ||
		err.Type == ErrorBadRequest ||
		err.Type == ErrorForbidden ||
		err.Type == ErrorUnauthorized
}
