package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProvider_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer provider-key" {
			t.Errorf("Authorization = %q, want Bearer provider-key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg-42"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "provider-key")
	id, err := p.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if id != "msg-42" {
		t.Errorf("id = %s, want msg-42", id)
	}
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "provider-key")
	_, err := p.Send(context.Background(), testMessage())

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", perr.StatusCode)
	}
	if perr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", perr.RetryAfter)
	}
	if !perr.IsRetryable() {
		t.Error("429 should be retryable")
	}
}

func TestHTTPProvider_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "provider-key")
	_, err := p.Send(context.Background(), testMessage())

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", perr.StatusCode)
	}
	if !perr.IsRetryable() {
		t.Error("5xx should be retryable")
	}
}

func TestHTTPProvider_ClientError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad recipient", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "provider-key")
	_, err := p.Send(context.Background(), testMessage())

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.IsRetryable() {
		t.Error("4xx should not be retryable")
	}
}

func TestProviderError_Error(t *testing.T) {
	t.Parallel()

	e := &ProviderError{StatusCode: 400, Detail: "bad recipient"}
	if got := e.Error(); got != "provider returned 400: bad recipient" {
		t.Errorf("Error() = %q", got)
	}

	bare := &ProviderError{StatusCode: 500}
	if got := bare.Error(); got != "provider returned 500" {
		t.Errorf("Error() = %q", got)
	}
}
