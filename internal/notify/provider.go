// Package notify implements the outbound-notification delivery engine:
// dispatching transactional email through a rate-limited provider with
// bounded retries and an append-only delivery audit trail.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Message is one rendered notification ready for delivery.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Provider is the external delivery service. Send returns the provider
// message ID on success; failures carry the provider status code so the
// retry engine can classify them.
type Provider interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ProviderError is a classified delivery failure.
type ProviderError struct {
	StatusCode int
	RetryAfter time.Duration // from the Retry-After header, if any
	Detail     string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("provider returned %d", e.StatusCode)
}

// IsRetryable reports whether the failure is worth retrying. Only rate
// limits and provider server errors are; client errors never are.
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPProvider delivers messages through an HTTP email API.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPProvider creates a provider for the given API endpoint.
func NewHTTPProvider(endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   newHTTPClient(),
	}
}

// sendResponse is the provider's success body.
type sendResponse struct {
	ID string `json:"id"`
}

// Send posts the message to the provider and maps non-2xx responses to
// *ProviderError.
func (p *HTTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("User-Agent", "EdgeLink-Notify/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out sendResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return out.ID, nil
	}

	perr := &ProviderError{
		StatusCode: resp.StatusCode,
		Detail:     string(bytes.TrimSpace(body)),
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			perr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return "", perr
}

// newHTTPClient builds an HTTP client with delivery-appropriate
// timeouts that does not follow redirects.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
