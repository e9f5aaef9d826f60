// Package metrics exposes Prometheus counters for the message lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "otm"

// Fetch and delete outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeExpired     = "expired"
	OutcomeAlreadyGone = "already_gone"
	OutcomeError       = "error"
)

// Recorder owns a private registry so tests never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry
	created  prometheus.Counter
	fetched  *prometheus.CounterVec
	deleted  *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_created_total",
			Help:      "Messages stored.",
		}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_fetched_total",
			Help:      "Fetch requests by outcome.",
		}, []string{"outcome"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Delete (burn) requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.created, r.fetched, r.deleted)
	return r
}

func (r *Recorder) Created() {
	r.created.Inc()
}

func (r *Recorder) Fetched(outcome string) {
	r.fetched.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Deleted(outcome string) {
	r.deleted.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing /metrics on addr.
func (r *Recorder) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
