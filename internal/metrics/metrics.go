// Package metrics exports engine notices as Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nathoo/duelcore/engine/events"
)

const namespace = "duelcore"

// Recorder counts engine activity on its own registry, so several engines in
// one process (or one test binary) never collide on the default registry.
type Recorder struct {
	registry *prometheus.Registry

	Steps      *prometheus.CounterVec
	Commands   *prometheus.CounterVec
	Rejected   *prometheus.CounterVec
	Vetoed     *prometheus.CounterVec
	Unresolved *prometheus.CounterVec
	Replays    prometheus.Counter
}

// NewRecorder creates a recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Executed steps by resulting status.",
		}, []string{"status"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "commands_total",
			Help:      "Executed commands by type.",
		}, []string{"command"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "commands_rejected_total",
			Help:      "Commands refused by validation.",
		}, []string{"command"}),
		Vetoed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "commands_vetoed_total",
			Help:      "Commands cancelled by a replacement effect.",
		}, []string{"command"}),
		Unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "intents_unresolved_total",
			Help:      "Intents dropped because no command matched their type.",
		}, []string{"intent"}),
		Replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "loaded_total",
			Help:      "Replays imported into an engine.",
		}),
	}
	r.registry.MustRegister(r.Steps, r.Commands, r.Rejected, r.Vetoed, r.Unresolved, r.Replays)
	return r
}

// Attach subscribes the recorder to n.
func (r *Recorder) Attach(n *events.Notifier) {
	n.Listen(r.Observe)
}

// Observe records one notice.
func (r *Recorder) Observe(n events.Notice) {
	switch n.Kind {
	case events.NoticeStep:
		r.Steps.WithLabelValues(n.Status).Inc()
		if n.CommandType != "" {
			r.Commands.WithLabelValues(n.CommandType).Inc()
		}
	case events.NoticeRejected:
		r.Rejected.WithLabelValues(n.CommandType).Inc()
	case events.NoticeVetoed:
		r.Vetoed.WithLabelValues(n.CommandType).Inc()
	case events.NoticeIntentUnresolved:
		r.Unresolved.WithLabelValues(n.Detail).Inc()
	case events.NoticeReplayLoaded:
		r.Replays.Inc()
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server returns an HTTP server exposing /metrics on addr. The caller owns
// ListenAndServe and Shutdown.
func (r *Recorder) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
