package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

// scriptedProvider returns one canned outcome per attempt.
type scriptedProvider struct {
	outcomes []error
	ids      []string
	calls    int
}

func (p *scriptedProvider) Send(ctx context.Context, msg Message) (string, error) {
	i := p.calls
	p.calls++
	if i >= len(p.outcomes) {
		return "", errors.New("unexpected extra attempt")
	}
	if p.outcomes[i] != nil {
		return "", p.outcomes[i]
	}
	if i < len(p.ids) {
		return p.ids[i], nil
	}
	return "msg-id", nil
}

// recordingAudit captures appended delivery attempts.
type recordingAudit struct {
	attempts []*model.DeliveryAttempt
	err      error
}

func (a *recordingAudit) Append(ctx context.Context, attempt *model.DeliveryAttempt) error {
	a.attempts = append(a.attempts, attempt)
	return a.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(provider Provider, audit AuditStore) (*Engine, *[]time.Duration) {
	e := NewEngine(provider, audit, discardLogger(), nil)
	var sleeps []time.Duration
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return e, &sleeps
}

func testMessage() Message {
	return Message{To: "a@example.com", From: "no-reply@edgelink.io", Subject: "s", Body: "b"}
}

func TestEngine_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{outcomes: []error{nil}, ids: []string{"msg-1"}}
	audit := &recordingAudit{}
	engine, sleeps := newTestEngine(provider, audit)

	id, err := engine.Send(context.Background(), model.NotifyVerification, testMessage())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if id != "msg-1" {
		t.Errorf("id = %s, want msg-1", id)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1", provider.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}

	if len(audit.attempts) != 1 {
		t.Fatalf("audit records = %d, want 1", len(audit.attempts))
	}
	rec := audit.attempts[0]
	if rec.Status != model.DeliverySent || rec.AttemptNumber != 1 || rec.ProviderMessageID != "msg-1" {
		t.Errorf("unexpected audit record: %+v", rec)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Error("audit record should carry ID and timestamp")
	}
}

func TestEngine_RateLimitedTwiceThenSucceeds(t *testing.T) {
	t.Parallel()

	rateLimited := &ProviderError{StatusCode: http.StatusTooManyRequests}
	provider := &scriptedProvider{
		outcomes: []error{rateLimited, rateLimited, nil},
		ids:      []string{"", "", "msg-3"},
	}
	audit := &recordingAudit{}
	engine, sleeps := newTestEngine(provider, audit)

	id, err := engine.Send(context.Background(), model.NotifyVerification, testMessage())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if id != "msg-3" {
		t.Errorf("id = %s, want msg-3", id)
	}
	if provider.calls != 3 {
		t.Errorf("calls = %d, want 3", provider.calls)
	}

	// Backoff is 2^attempt seconds without a Retry-After hint.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], want[i])
		}
	}

	// One rate_limited record per throttled attempt plus the final sent.
	if len(audit.attempts) != 3 {
		t.Fatalf("audit records = %d, want 3", len(audit.attempts))
	}
	for i := 0; i < 2; i++ {
		if audit.attempts[i].Status != model.DeliveryRateLimited {
			t.Errorf("record %d status = %s, want %s", i, audit.attempts[i].Status, model.DeliveryRateLimited)
		}
		if audit.attempts[i].AttemptNumber != i+1 {
			t.Errorf("record %d attempt = %d, want %d", i, audit.attempts[i].AttemptNumber, i+1)
		}
	}
	if audit.attempts[2].Status != model.DeliverySent {
		t.Errorf("final record status = %s, want %s", audit.attempts[2].Status, model.DeliverySent)
	}
}

func TestEngine_HonorsRetryAfter(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		outcomes: []error{
			&ProviderError{StatusCode: http.StatusTooManyRequests, RetryAfter: 7 * time.Second},
			nil,
		},
	}
	engine, sleeps := newTestEngine(provider, &recordingAudit{})

	if _, err := engine.Send(context.Background(), model.NotifyPasswordReset, testMessage()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 7*time.Second {
		t.Errorf("sleeps = %v, want [7s]", *sleeps)
	}
}

func TestEngine_ServerErrorsRetryWithoutPerAttemptAudit(t *testing.T) {
	t.Parallel()

	serverErr := &ProviderError{StatusCode: http.StatusBadGateway}
	provider := &scriptedProvider{outcomes: []error{serverErr, nil}, ids: []string{"", "msg-2"}}
	audit := &recordingAudit{}
	engine, sleeps := newTestEngine(provider, audit)

	if _, err := engine.Send(context.Background(), model.NotifyVerification, testMessage()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2", provider.calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want [2s]", *sleeps)
	}

	// 5xx retries are not audited per attempt; only the sent record lands.
	if len(audit.attempts) != 1 {
		t.Fatalf("audit records = %d, want 1", len(audit.attempts))
	}
	if audit.attempts[0].Status != model.DeliverySent {
		t.Errorf("status = %s, want %s", audit.attempts[0].Status, model.DeliverySent)
	}
}

func TestEngine_ClientErrorIsTerminal(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		outcomes: []error{&ProviderError{StatusCode: http.StatusBadRequest, Detail: "bad recipient"}},
	}
	audit := &recordingAudit{}
	engine, sleeps := newTestEngine(provider, audit)

	_, err := engine.Send(context.Background(), model.NotifyVerification, testMessage())
	if err == nil {
		t.Fatal("client error should be terminal")
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", provider.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}

	if len(audit.attempts) != 1 {
		t.Fatalf("audit records = %d, want 1", len(audit.attempts))
	}
	if audit.attempts[0].Status != model.DeliveryFailed {
		t.Errorf("status = %s, want %s", audit.attempts[0].Status, model.DeliveryFailed)
	}
}

func TestEngine_TransportErrorIsTerminal(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{outcomes: []error{errors.New("connection refused")}}
	engine, _ := newTestEngine(provider, &recordingAudit{})

	_, err := engine.Send(context.Background(), model.NotifyVerification, testMessage())
	if err == nil {
		t.Fatal("transport error should be terminal")
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1", provider.calls)
	}
}

func TestEngine_ExhaustedBudget(t *testing.T) {
	t.Parallel()

	rateLimited := &ProviderError{StatusCode: http.StatusTooManyRequests}
	provider := &scriptedProvider{outcomes: []error{rateLimited, rateLimited, rateLimited}}
	audit := &recordingAudit{}
	engine, sleeps := newTestEngine(provider, audit)

	_, err := engine.Send(context.Background(), model.NotifyVerification, testMessage())
	if err == nil {
		t.Fatal("exhausted budget should surface an error")
	}
	if !strings.HasPrefix(err.Error(), "send verification notification") {
		t.Errorf("error = %q, should name the notification kind", err)
	}
	if provider.calls != 3 {
		t.Errorf("calls = %d, want 3", provider.calls)
	}

	// 2s, 4s, 8s - the engine sleeps even after the final attempt.
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}

	// Three rate_limited records plus the terminal failed record.
	if len(audit.attempts) != 4 {
		t.Fatalf("audit records = %d, want 4", len(audit.attempts))
	}
	last := audit.attempts[3]
	if last.Status != model.DeliveryFailed || last.AttemptNumber != 3 {
		t.Errorf("terminal record = %+v, want failed with attempt 3", last)
	}
}

func TestEngine_AuditFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{outcomes: []error{nil}, ids: []string{"msg-1"}}
	audit := &recordingAudit{err: errors.New("audit db down")}
	engine, _ := newTestEngine(provider, audit)

	if _, err := engine.Send(context.Background(), model.NotifyVerification, testMessage()); err != nil {
		t.Errorf("audit failure must not fail the send: %v", err)
	}
}
