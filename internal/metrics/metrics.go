// Package metrics exposes Prometheus collectors for verification, geofence
// and audit activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	verificationsTotal    *prometheus.CounterVec
	verificationDuration  *prometheus.HistogramVec
	geofenceChecksTotal   *prometheus.CounterVec
	geofenceRoutesLoaded  prometheus.Gauge
	auditWritesTotal      *prometheus.CounterVec
	auditQueueDepth       prometheus.Gauge
	storeOperationsTotal  *prometheus.CounterVec
	storeOperationLatency *prometheus.HistogramVec
	loginAttemptsTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agro_verifications_total",
			Help: "Verification verdicts by type, status and risk level",
		}, []string{"type", "status", "risk_level"}),
		verificationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agro_verification_duration_seconds",
			Help:    "Time taken to reach a verification verdict",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"type"}),
		geofenceChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agro_geofence_checks_total",
			Help: "Location checks by outcome",
		}, []string{"authorized"}),
		geofenceRoutesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agro_geofence_routes_loaded",
			Help: "Routes present in the current geofence snapshot",
		}),
		auditWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agro_audit_writes_total",
			Help: "Audit record writes by status",
		}, []string{"status"}),
		auditQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agro_audit_queue_depth",
			Help: "Audit records waiting to be written",
		}),
		storeOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agro_store_operations_total",
			Help: "Store operations by name and status",
		}, []string{"operation", "status"}),
		storeOperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agro_store_operation_duration_seconds",
			Help:    "Store operation latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),
		loginAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agro_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
	}

	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewNop returns metrics bound to a private registry, for tests and tools.
func NewNop() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.verificationsTotal,
		m.verificationDuration,
		m.geofenceChecksTotal,
		m.geofenceRoutesLoaded,
		m.auditWritesTotal,
		m.auditQueueDepth,
		m.storeOperationsTotal,
		m.storeOperationLatency,
		m.loginAttemptsTotal,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordVerification(kind, status, risk string, elapsed time.Duration) {
	m.verificationsTotal.WithLabelValues(kind, status, risk).Inc()
	m.verificationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordGeofenceCheck(authorized bool) {
	label := "false"
	if authorized {
		label = "true"
	}
	m.geofenceChecksTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) SetRoutesLoaded(n int) {
	m.geofenceRoutesLoaded.Set(float64(n))
}

func (m *Metrics) RecordAuditWrite(status string) {
	m.auditWritesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetAuditQueueDepth(n int) {
	m.auditQueueDepth.Set(float64(n))
}

func (m *Metrics) RecordStoreOperation(operation string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeOperationsTotal.WithLabelValues(operation, status).Inc()
	m.storeOperationLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLogin(outcome string) {
	m.loginAttemptsTotal.WithLabelValues(outcome).Inc()
}
