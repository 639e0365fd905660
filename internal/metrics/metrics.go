// Package metrics exposes Prometheus collectors for decisions, fetches,
// sessions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synapse/internal/decision"
	"synapse/internal/pkg/circuit"
)

const namespace = "synapse"

// Registry owns its own prometheus.Registry so tests never touch the
// global default.
type Registry struct {
	reg *prometheus.Registry

	Decisions       *prometheus.CounterVec
	LayerFires      *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	FetchedBars     prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter
	BreakerState    *prometheus.GaugeVec
	HTTPDuration    *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Decisions produced, by outcome and direction",
			},
			[]string{"decision", "direction"},
		),
		LayerFires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layer_fires_total",
				Help:      "Layer verdicts that fired, by layer and direction",
			},
			[]string{"layer", "direction"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "market_fetch_duration_seconds",
				Help:      "Duration of market data fetches",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind", "result"},
		),
		FetchedBars: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_fetched_bars_total",
				Help:      "Bars returned by market data fetches",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Sessions currently cached",
			},
		),
		SessionsEvicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_evicted_total",
				Help:      "Sessions evicted by the capacity bound",
			},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"name"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Decisions,
		r.LayerFires,
		r.FetchDuration,
		r.FetchedBars,
		r.SessionsActive,
		r.SessionsEvicted,
		r.BreakerState,
		r.HTTPDuration,
	)
	return r
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveDecision counts the record and every fired layer in it.
func (r *Registry) ObserveDecision(rec decision.Record) {
	r.Decisions.WithLabelValues(string(rec.Decision), string(rec.Direction)).Inc()
	for _, v := range rec.Layers {
		if v.Fired() {
			r.LayerFires.WithLabelValues(strconv.Itoa(v.Layer), string(v.Direction)).Inc()
		}
	}
}

// ObserveSession updates the session gauges after a create.
func (r *Registry) ObserveSession(active int) {
	r.SessionsActive.Set(float64(active))
}

// SessionEvicted is suitable as a session.WithEvictHook callback.
func (r *Registry) SessionEvicted(string) {
	r.SessionsEvicted.Inc()
}

// TrackBreaker mirrors cb's state into BreakerState and logs transitions.
func (r *Registry) TrackBreaker(cb *circuit.CircuitBreaker) {
	gauge := r.BreakerState.WithLabelValues(cb.Name())
	gauge.Set(float64(cb.State()))
	cb.SetStateChangeHandler(func(name string, from, to circuit.State) {
		gauge.Set(float64(to))
		logBreaker(name, from, to)
	})
}
