// Package metrics exposes dispatch outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaharia-lab/mailjob/internal/dispatch"
	"github.com/shaharia-lab/mailjob/internal/eventbus"
)

const (
	namespace        = "mailjob"
	unknownEventType = "unknown"
)

// Recorder counts dispatch outcomes. It satisfies mailjob.Observer.
type Recorder struct {
	registry  *prometheus.Registry
	outcomes  *prometheus.CounterVec
	malformed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Dispatch attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Deliveries rejected before dispatch because they could not be decoded.",
		}, []string{"topic"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent resolving, rendering and sending one dispatch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	r.registry.MustRegister(
		r.outcomes,
		r.malformed,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOutcome records one dispatch.
func (r *Recorder) ObserveOutcome(_ context.Context, _ eventbus.Message, out dispatch.Outcome) {
	label := "success"
	if !out.Success() {
		label = string(out.Kind())
	}
	eventType := eventTypeLabel(out)
	r.outcomes.WithLabelValues(eventType, label).Inc()
	r.duration.WithLabelValues(eventType).Observe(out.Duration.Seconds())
}

// eventTypeLabel keeps the label set bounded by the template set: an event
// type with no template is publisher input and is reported as "unknown".
func eventTypeLabel(out dispatch.Outcome) string {
	if out.EventType == "" || out.Kind() == dispatch.KindTemplateNotFound {
		return unknownEventType
	}
	return out.EventType
}

// ObserveMalformed records one undecodable delivery.
func (r *Recorder) ObserveMalformed(_ context.Context, msg eventbus.Message, _ error) {
	r.malformed.WithLabelValues(msg.Topic).Inc()
}

// TrackInFlight registers a gauge that reports fn on every scrape.
func (r *Recorder) TrackInFlight(fn func() int) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inflight_dispatches",
		Help:      "Deliveries currently being handled by the mail job.",
	}, func() float64 { return float64(fn()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
