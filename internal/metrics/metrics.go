package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the client's instrumentation. Construct one per process
// (or per test, with a fresh registry).
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal     *prometheus.CounterVec
	FetchDuration  *prometheus.SummaryVec
	LastSuccess    *prometheus.GaugeVec
	TicksSkipped   *prometheus.CounterVec
	Mutations      *prometheus.CounterVec
	MapRebuilds    prometheus.Counter
	MarkersDropped prometheus.Counter
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{registry: reg}
	m.FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cad_client",
		Name:      "fetch_total",
		Help:      "Collection fetches by outcome",
	}, []string{"collection", "status"})
	m.FetchDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "cad_client",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and applying a collection",
	}, []string{"collection"})
	m.LastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cad_client",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful fetch per collection",
	}, []string{"collection"})
	m.TicksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cad_client",
		Name:      "poll_ticks_skipped_total",
		Help:      "Poll ticks skipped because the previous tick was still in flight",
	}, []string{"group"})
	m.Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cad_client",
		Name:      "mutations_total",
		Help:      "Mutations by kind and outcome",
	}, []string{"kind", "status"})
	m.MapRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cad_client",
		Name:      "map_rebuilds_total",
		Help:      "Times the projected marker set actually changed",
	})
	m.MarkersDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cad_client",
		Name:      "markers_dropped_total",
		Help:      "Entities dropped from a projection due to malformed data",
	})
	reg.MustRegister(
		m.FetchTotal, m.FetchDuration, m.LastSuccess,
		m.TicksSkipped, m.Mutations, m.MapRebuilds, m.MarkersDropped,
	)
	return m
}

// Handler serves the metrics registry for a plain http.Server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
