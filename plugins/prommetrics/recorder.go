// Package prommetrics exports platoon client activity as Prometheus metrics.
package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/platoon/pkg/platoon"
)

// Recorder implements platoon.EventHandler by updating Prometheus collectors.
type Recorder struct {
	platoon.BaseEventHandler

	eventsSent    prometheus.Counter
	batchesSent   *prometheus.CounterVec
	batchDuration prometheus.Histogram
	sendFailures  *prometheus.CounterVec
	eventsDropped prometheus.Counter
	eventsLost    prometheus.Counter
	active        prometheus.Gauge
	ready         prometheus.Gauge
}

// NewRecorder creates a recorder and registers its collectors with reg.
// A nil reg skips registration.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		eventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "platoon",
			Name:      "events_sent_total",
			Help:      "Events accepted by the service.",
		}),
		batchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platoon",
			Name:      "batches_sent_total",
			Help:      "Batches accepted by the service, by send mode.",
		}, []string{"mode"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "platoon",
			Name:      "batch_send_duration_seconds",
			Help:      "Time to deliver a batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platoon",
			Name:      "send_failures_total",
			Help:      "Failed requests, by endpoint and failure kind.",
		}, []string{"path", "kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "platoon",
			Name:      "events_dropped_total",
			Help:      "Events added before the session was ready.",
		}),
		eventsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "platoon",
			Name:      "events_lost_total",
			Help:      "Events in batches that failed to send.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "platoon",
			Name:      "active",
			Help:      "1 while sending is enabled.",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "platoon",
			Name:      "session_ready",
			Help:      "1 while the session is ready.",
		}),
	}

	if reg != nil {
		for _, c := range r.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.eventsSent,
		r.batchesSent,
		r.batchDuration,
		r.sendFailures,
		r.eventsDropped,
		r.eventsLost,
		r.active,
		r.ready,
	}
}

// OnReadyStateChange tracks the session gauge.
func (r *Recorder) OnReadyStateChange(event platoon.ReadyStateChangeEvent) {
	if event.Current == platoon.StateReady {
		r.ready.Set(1)
	} else {
		r.ready.Set(0)
	}
}

// OnActivationChange tracks the activation gauge.
func (r *Recorder) OnActivationChange(event platoon.ActivationChangeEvent) {
	if event.Active {
		r.active.Set(1)
	} else {
		r.active.Set(0)
	}
}

// OnBatchSent counts delivered events and batches.
func (r *Recorder) OnBatchSent(event platoon.BatchSentEvent) {
	mode := "async"
	if event.Blocking {
		mode = "blocking"
	}
	r.batchesSent.WithLabelValues(mode).Inc()
	r.eventsSent.Add(float64(event.EventCount))
	r.batchDuration.Observe(event.Duration.Seconds())
}

// OnSendFailure counts failed requests and the events they carried.
func (r *Recorder) OnSendFailure(event platoon.SendFailureEvent) {
	r.sendFailures.WithLabelValues(event.Path, event.Kind.String()).Inc()
	r.eventsLost.Add(float64(event.EventCount))
}

// OnEventDropped counts events rejected before the session was ready.
func (r *Recorder) OnEventDropped(platoon.EventDroppedEvent) {
	r.eventsDropped.Inc()
}

var _ platoon.EventHandler = (*Recorder)(nil)
