package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the receptionist's counters. A nil *Recorder is valid and
// records nothing, so tests and tools can skip metrics entirely.
type Recorder struct {
	registry *prometheus.Registry

	turns             *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	responderFailures *prometheus.CounterVec
	messagesCaptured  *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
}

// New builds a Recorder on a private registry with Go and process
// collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receptionist_turns_total",
			Help: "Dialog turns handled, by stage at time of turn and outcome",
		}, []string{"stage", "outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receptionist_turn_duration_seconds",
			Help:    "Time spent producing a reply for one turn",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 4, 8},
		}, []string{"mode"}),
		responderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receptionist_responder_failures_total",
			Help: "Generative responder failures replaced by the fallback reply, by kind",
		}, []string{"kind"}),
		messagesCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receptionist_messages_captured_total",
			Help: "Captured messages written, by intent",
		}, []string{"intent"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receptionist_store_errors_total",
			Help: "Storage operations that failed during a turn, by operation",
		}, []string{"op"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.turns, r.turnDuration, r.responderFailures, r.messagesCaptured, r.storeErrors,
	)
	return r
}

func (r *Recorder) Turn(stage, outcome string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(stage, outcome).Inc()
}

func (r *Recorder) TurnDuration(mode string, d time.Duration) {
	if r == nil {
		return
	}
	r.turnDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (r *Recorder) ResponderFailure(kind string) {
	if r == nil {
		return
	}
	r.responderFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) MessageCaptured(intent string) {
	if r == nil {
		return
	}
	r.messagesCaptured.WithLabelValues(intent).Inc()
}

func (r *Recorder) StoreError(op string) {
	if r == nil {
		return
	}
	r.storeErrors.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
