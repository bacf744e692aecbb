package pos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRESTClient() *restClient {
	c := newRESTClient(ProviderToast, nil)
	c.backoffBase = time.Millisecond
	return c
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	c := testRESTClient()
	if err := c.doJSON(context.Background(), restRequest{Method: http.MethodGet, URL: srv.URL}, &out); err != nil {
		t.Fatalf("doJSON failed after retries: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !out.OK {
		t.Fatal("response body not decoded")
	}
}

func TestDoJSONGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testRESTClient()
	err := c.doJSON(context.Background(), restRequest{Method: http.MethodGet, URL: srv.URL}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if calls != maxHTTPAttempts {
		t.Fatalf("expected %d attempts, got %d", maxHTTPAttempts, calls)
	}
	if !IsRetryable(err) {
		t.Fatal("exhausted 5xx should still classify as retryable for the saga")
	}
}

func TestDoJSONFailsFastOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testRESTClient()
	err := c.doJSON(context.Background(), restRequest{Method: http.MethodGet, URL: srv.URL}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", calls)
	}
	if IsRetryable(err) {
		t.Fatal("404 must not be retryable")
	}
}

func TestDoJSONFailsFastOnAuthError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testRESTClient()
	err := c.doJSON(context.Background(), restRequest{Method: http.MethodGet, URL: srv.URL}, nil)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("401 must not be retried, got %d attempts", calls)
	}
}

func TestDoJSONCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testRESTClient()
	c.maxAttempts = 1
	err := c.doJSON(context.Background(), restRequest{Method: http.MethodGet, URL: srv.URL}, nil)
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateErr.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %s, want 7s", rateErr.RetryAfter)
	}
	if !IsRetryable(err) {
		t.Fatal("rate limit must be retryable")
	}
}
