package audio

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a non-2xx answer from a synthesis provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether another attempt may succeed. Rate limiting and
// server errors are retryable; auth and request errors are not.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is a retryable provider error, or a
// transport failure that never produced a status.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return err != nil
}
