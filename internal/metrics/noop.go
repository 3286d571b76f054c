package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthDecision is a no-op.
func (n *NoopRecorder) IncAuthDecision(outcome string) {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(d time.Duration) {}

// IncQuotaDecision is a no-op.
func (n *NoopRecorder) IncQuotaDecision(plan, outcome string) {}

// IncDelivery is a no-op.
func (n *NoopRecorder) IncDelivery(kind, status string) {}

// IncDeliveryRetry is a no-op.
func (n *NoopRecorder) IncDeliveryRetry(kind string, attempt int) {}

// ObserveDeliveryDuration is a no-op.
func (n *NoopRecorder) ObserveDeliveryDuration(kind string, d time.Duration) {}
