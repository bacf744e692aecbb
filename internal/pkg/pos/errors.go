package pos

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownProvider is returned by the registry for unregistered ids.
var ErrUnknownProvider = errors.New("unknown pos provider")

// AuthError signals bad or expired credentials. Callers re-authenticate;
// it is never surfaced to customers.
type AuthError struct {
	Provider Provider
	Message  string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %s", e.Provider, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError signals a transient vendor API failure. Retryable with backoff
// unless StatusCode is a 4xx validation failure.
type APIError struct {
	Provider   Provider
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s api: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt.
// 4xx responses are caller errors and fail fast.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// RateLimitError is a 429 with the vendor's requested pause.
type RateLimitError struct {
	Provider   Provider
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s api: rate limited, retry after %s", e.Provider, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// WebhookError signals an unparseable or unverifiable webhook payload.
type WebhookError struct {
	Provider Provider
	Message  string
	Err      error
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("%s webhook: %s", e.Provider, e.Message)
}

func (e *WebhookError) Unwrap() error { return e.Err }

// OrderError signals an order submission rejected by the provider.
type OrderError struct {
	Provider Provider
	Message  string
	OrderID  string
	Err      error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s order: %s", e.Provider, e.Message)
}

func (e *OrderError) Unwrap() error { return e.Err }

// IsRetryable classifies an adapter error for the saga's retry decision.
// Auth failures are retryable because the next attempt re-authenticates;
// 4xx API responses are caller errors and are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}
