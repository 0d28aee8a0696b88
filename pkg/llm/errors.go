package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized  = errors.New("llm unauthorized")
	ErrUnavailable   = errors.New("llm unavailable")
	ErrRateLimited   = errors.New("llm rate limited")
	ErrEmptyResponse = errors.New("llm empty response")
)

const maxErrorBodyBytes = 2048

// StatusError maps a non-2xx backend status onto the sentinel errors.
func StatusError(backend string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", backend, ErrUnauthorized)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", backend, ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("%s: status %d: %w", backend, status, ErrUnavailable)
	}
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return fmt.Errorf("%s error: status %d, body: %s", backend, status, string(body))
}
