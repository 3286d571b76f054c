// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// The Prometheus implementation is the production choice; NewNoop
// keeps call sites unconditional in tests.
type Recorder interface {
	// Identity resolution
	IncAuthDecision(outcome string) // "anonymous", "authenticated", "rejected"
	ObserveResolveDuration(d time.Duration)

	// Quota enforcement
	IncQuotaDecision(plan, outcome string) // outcome: "allowed", "denied"

	// Notification delivery
	IncDelivery(kind, status string) // status: "sent", "failed"
	IncDeliveryRetry(kind string, attempt int)
	ObserveDeliveryDuration(kind string, d time.Duration)
}
