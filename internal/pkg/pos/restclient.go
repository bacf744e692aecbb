package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxResponseBytes   = 4 << 20

	maxHTTPAttempts    = 3
	defaultBackoffBase = 2 * time.Second
)

// restClient is the shared JSON-over-HTTP helper the vendor adapters
// build on. It owns status-code classification so adapters only deal
// with typed errors.
type restClient struct {
	provider Provider
	http     *http.Client

	maxAttempts int
	backoffBase time.Duration
}

func newRESTClient(provider Provider, httpClient *http.Client) *restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &restClient{
		provider:    provider,
		http:        httpClient,
		maxAttempts: maxHTTPAttempts,
		backoffBase: defaultBackoffBase,
	}
}

type restRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// doJSON executes the request and decodes a 2xx response into out (if
// non-nil). Transport errors, 5xx responses, and 429s are retried up to
// maxAttempts with exponential backoff, honoring Retry-After when the
// server sends one. Non-2xx responses come back as typed errors: 401/403
// as AuthError, 429 as RateLimitError with the server's Retry-After, and
// everything else as APIError carrying the status code. 4xx responses
// fail fast.
func (c *restClient) doJSON(ctx context.Context, r restRequest, out any) error {
	var raw []byte
	if r.Body != nil {
		var err error
		raw, err = json.Marshal(r.Body)
		if err != nil {
			return &APIError{Provider: c.provider, Message: "encode request body", Err: err}
		}
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		var bodyReader io.Reader
		if raw != nil {
			bodyReader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bodyReader)
		if err != nil {
			return &APIError{Provider: c.provider, Message: "build request", Err: err}
		}
		req.Header.Set("Accept", "application/json")
		if r.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range r.Headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = &APIError{Provider: c.provider, Message: "request failed", Err: err}
			if attempt >= c.maxAttempts || !c.wait(ctx, c.backoff(attempt)) {
				return lastErr
			}
			continue
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &AuthError{Provider: c.provider, Message: fmt.Sprintf("status=%d body=%s", resp.StatusCode, truncate(body, 256))}
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = &RateLimitError{Provider: c.provider, RetryAfter: retryAfter}
			delay := c.backoff(attempt)
			if retryAfter > delay {
				delay = retryAfter
			}
			if attempt >= c.maxAttempts || !c.wait(ctx, delay) {
				return lastErr
			}
			continue
		case resp.StatusCode >= 500:
			lastErr = &APIError{
				Provider:   c.provider,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("status=%d body=%s", resp.StatusCode, truncate(body, 256)),
			}
			if attempt >= c.maxAttempts || !c.wait(ctx, c.backoff(attempt)) {
				return lastErr
			}
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &APIError{
				Provider:   c.provider,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("status=%d body=%s", resp.StatusCode, truncate(body, 256)),
			}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &APIError{Provider: c.provider, Message: "decode response body", Err: err}
		}
		return nil
	}
}

// backoff returns the pause before the retry following the given
// attempt: base, 2*base, 4*base, ...
func (c *restClient) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.backoffBase << (attempt - 1)
}

// wait sleeps for the delay. Returns false if the context was cancelled
// first, in which case the caller gives up with its last error.
func (c *restClient) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
