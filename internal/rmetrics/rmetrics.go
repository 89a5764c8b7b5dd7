// Package rmetrics holds the Prometheus instrumentation for a Database.
// Registration is optional: a nil *Metrics is safe to call methods on
// and simply does nothing, so callers that don't want a /metrics endpoint
// pay no cost.
package rmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge/histogram the rotation and ingest
// paths touch. Construct with New and register with Register; a nil
// *Metrics is valid and every method becomes a no-op.
type Metrics struct {
	IngestTotal    prometheus.Counter
	IngestRejected prometheus.Counter
	RotateTotal    prometheus.Counter
	RotateFailures prometheus.Counter
	RotateDuration prometheus.Histogram
	LiveStores     *prometheus.GaugeVec
}

// New builds a fresh Metrics with the given namespace (empty string is
// fine). It is not yet registered with any registry.
func New(namespace string) *Metrics {
	return &Metrics{
		IngestTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_total", Help: "Pairs successfully ingested.",
		}),
		IngestRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_rejected_total", Help: "Ingest calls rejected (nil key or val).",
		}),
		RotateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rotate_total", Help: "Rotate calls that returned success.",
		}),
		RotateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rotate_failures_total", Help: "Rotate calls that returned failure.",
		}),
		RotateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "rotate_duration_seconds", Help: "Wall time spent in Rotate.",
			Buckets: prometheus.DefBuckets,
		}),
		LiveStores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_stores", Help: "Live stores per ring tier.",
		}, []string{"tier"}),
	}
}

// Register adds every collector to reg. Call once after New.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		m.IngestTotal, m.IngestRejected, m.RotateTotal, m.RotateFailures, m.RotateDuration, m.LiveStores,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) incIngest() {
	if m != nil {
		m.IngestTotal.Inc()
	}
}

func (m *Metrics) incIngestRejected() {
	if m != nil {
		m.IngestRejected.Inc()
	}
}
func (m *Metrics) incRotate(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.RotateTotal.Inc()
	} else {
		m.RotateFailures.Inc()
	}
}

// IngestOK records a successful ingest.
func (m *Metrics) IngestOK() { m.incIngest() }

// IngestBad records a rejected ingest (nil key/val).
func (m *Metrics) IngestBad() { m.incIngestRejected() }

// RotateDone records the outcome and duration (in seconds) of a Rotate call.
func (m *Metrics) RotateDone(ok bool, seconds float64) {
	m.incRotate(ok)
	if m != nil {
		m.RotateDuration.Observe(seconds)
	}
}

// SetLiveStores records the current non-nil store count for a ring tier
// ("hourly", "daily", "monthly").
func (m *Metrics) SetLiveStores(tier string, n int) {
	if m != nil {
		m.LiveStores.WithLabelValues(tier).Set(float64(n))
	}
}
