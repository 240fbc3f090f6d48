package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// HTTPStatusError is implemented by errors that carry an HTTP status code,
// e.g. *httpx.StatusError and *sheets.APIError.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// permanent marks errors that must never be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so DefaultRetryable rejects it. errors.Is/As still see
// the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// DefaultRetryable retries network-level failures and HTTP 429/5xx
// responses. Other 4xx responses, cancellations and unknown errors are not
// retried.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p *permanent
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se HTTPStatusError
	if errors.As(err, &se) {
		return IsRetryableStatus(se.HTTPStatus())
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsRetryableStatus reports whether an HTTP status code warrants a retry.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
