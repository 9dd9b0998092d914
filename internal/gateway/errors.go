package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain error codes the learning backend returns in 400 bodies.
const (
	backendCodeHearts   = "hearts"
	backendCodePractice = "practice"
)

var (
	// ErrMissingToken is a precondition failure raised before any request
	// is attempted.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrHearts means the backend rejected a mutation for lack of hearts;
	// the controller must be forced into the hearts-exhausted state.
	ErrHearts = errors.New("insufficient hearts")

	// ErrPractice means the backend rejected a penalizing mutation because
	// the lesson is penalty-free server-side; treated as a no-op.
	ErrPractice = errors.New("practice lesson: penalty rejected")
)

// BackendError is a non-2xx upstream response that carries no recognized
// domain code.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

// DecodeError marks a backend response whose shape does not match the
// documented contract. Malformed responses fail loudly instead of defaulting.
type DecodeError struct {
	Endpoint string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}

// IsRetryable reports whether the failure is transient: transport errors,
// timeouts and 5xx/429 responses. Domain rejections are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrHearts) || errors.Is(err, ErrPractice) || errors.Is(err, ErrMissingToken) {
		return false
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.StatusCode == http.StatusTooManyRequests || be.StatusCode >= http.StatusInternalServerError
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return false
	}
	// Anything else came from the transport layer (connection failure,
	// context deadline) and may be retried by the caller.
	return true
}
