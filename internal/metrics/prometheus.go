package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	authDecisions    *prometheus.CounterVec
	resolveDuration  prometheus.Histogram
	quotaDecisions   *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryRetries  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
}

// NewPrometheus creates a PrometheusRecorder with its own registry.
func NewPrometheus() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgelink_auth_decisions_total",
			Help: "Identity resolution outcomes.",
		}, []string{"outcome"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgelink_auth_resolve_duration_seconds",
			Help:    "Time spent resolving caller identity.",
			Buckets: prometheus.DefBuckets,
		}),
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgelink_quota_decisions_total",
			Help: "Quota ledger outcomes per plan.",
		}, []string{"plan", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgelink_notification_deliveries_total",
			Help: "Terminal notification delivery outcomes.",
		}, []string{"kind", "status"}),
		deliveryRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgelink_notification_retries_total",
			Help: "Notification delivery retries by attempt number.",
		}, []string{"kind", "attempt"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edgelink_notification_send_duration_seconds",
			Help:    "Provider send call duration per notification kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		r.authDecisions,
		r.resolveDuration,
		r.quotaDecisions,
		r.deliveries,
		r.deliveryRetries,
		r.deliveryDuration,
	)
	return r
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// IncAuthDecision implements Recorder.
func (r *PrometheusRecorder) IncAuthDecision(outcome string) {
	r.authDecisions.WithLabelValues(outcome).Inc()
}

// ObserveResolveDuration implements Recorder.
func (r *PrometheusRecorder) ObserveResolveDuration(d time.Duration) {
	r.resolveDuration.Observe(d.Seconds())
}

// IncQuotaDecision implements Recorder.
func (r *PrometheusRecorder) IncQuotaDecision(plan, outcome string) {
	r.quotaDecisions.WithLabelValues(plan, outcome).Inc()
}

// IncDelivery implements Recorder.
func (r *PrometheusRecorder) IncDelivery(kind, status string) {
	r.deliveries.WithLabelValues(kind, status).Inc()
}

// IncDeliveryRetry implements Recorder.
func (r *PrometheusRecorder) IncDeliveryRetry(kind string, attempt int) {
	r.deliveryRetries.WithLabelValues(kind, strconv.Itoa(attempt)).Inc()
}

// ObserveDeliveryDuration implements Recorder.
func (r *PrometheusRecorder) ObserveDeliveryDuration(kind string, d time.Duration) {
	r.deliveryDuration.WithLabelValues(kind).Observe(d.Seconds())
}
