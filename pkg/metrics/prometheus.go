// Package metrics adapts the SDK's Metrics interface to Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records SDK metrics on three vectors labelled by metric name,
// so new metric names need no registration.
type Prometheus struct {
	counters  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	gauges    *prometheus.GaugeVec
}

// NewPrometheus creates the vectors under namespace and registers them on
// reg. A nil reg uses the default registerer.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "loopmetrics"
	}

	p := &Prometheus{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdk_events_total",
			Help:      "SDK counters by metric name.",
		}, []string{"metric"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sdk_duration_seconds",
			Help:      "SDK timings by metric name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sdk_gauge",
			Help:      "SDK gauges by metric name.",
		}, []string{"metric"}),
	}

	for _, c := range []prometheus.Collector{p.counters, p.durations, p.gauges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Label converts a dotted SDK metric name into a label value,
// e.g. "loopmetrics.events.sent" becomes "events_sent".
func Label(name string) string {
	name = strings.TrimPrefix(name, "loopmetrics.")
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// IncrementCounter implements the SDK Metrics interface.
func (p *Prometheus) IncrementCounter(name string, value int64) {
	p.counters.WithLabelValues(Label(name)).Add(float64(value))
}

// RecordDuration implements the SDK Metrics interface.
func (p *Prometheus) RecordDuration(name string, d time.Duration) {
	p.durations.WithLabelValues(Label(name)).Observe(d.Seconds())
}

// SetGauge implements the SDK Metrics interface.
func (p *Prometheus) SetGauge(name string, value float64) {
	p.gauges.WithLabelValues(Label(name)).Set(value)
}
