// Package metrics exposes bot activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "limitedbot"

// Recorder owns a private registry and the bot's collectors. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	offers         *prometheus.CounterVec
	sends          *prometheus.CounterVec
	failures       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	catalogItems   prometheus.Gauge
	inventoryItems prometheus.Gauge
	quotaUsed      prometheus.Gauge
	searchSeconds  prometheus.Histogram
	candidates     prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_reviewed_total",
			Help:      "Offers reviewed, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_sends_total",
			Help:      "Quota-consuming trade actions, by kind and result.",
		}, []string{"kind", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_failures_total",
			Help:      "Failures caught at an actor loop boundary.",
		}, []string{"actor", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Status API requests.",
		}, []string{"method", "status"}),
		catalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Items in the current catalog.",
		}),
		inventoryItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_items",
			Help:      "Copies in the operator's inventory.",
		}),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_used",
			Help:      "Trade actions in the current window.",
		}),
		searchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_search_seconds",
			Help:      "Time spent generating and evaluating candidates.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_considered",
			Help:      "Candidates evaluated per search.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.offers, r.sends, r.failures, r.httpRequests,
		r.catalogItems, r.inventoryItems, r.quotaUsed,
		r.searchSeconds, r.candidates,
	)
	return r
}

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) OfferReviewed(direction, outcome string) {
	if r != nil {
		r.offers.WithLabelValues(direction, outcome).Inc()
	}
}

func (r *Recorder) TradeSent(kind, result string) {
	if r != nil {
		r.sends.WithLabelValues(kind, result).Inc()
	}
}

func (r *Recorder) ActorFailure(actor, kind string) {
	if r != nil {
		r.failures.WithLabelValues(actor, kind).Inc()
	}
}

func (r *Recorder) APIRequest(method string, status int) {
	if r != nil {
		r.httpRequests.WithLabelValues(method, http.StatusText(status)).Inc()
	}
}

func (r *Recorder) CatalogSize(n int) {
	if r != nil {
		r.catalogItems.Set(float64(n))
	}
}

func (r *Recorder) InventorySize(n int) {
	if r != nil {
		r.inventoryItems.Set(float64(n))
	}
}

func (r *Recorder) QuotaUsed(n int) {
	if r != nil {
		r.quotaUsed.Set(float64(n))
	}
}

// Search records one candidate search.
func (r *Recorder) Search(took time.Duration, considered int) {
	if r != nil {
		r.searchSeconds.Observe(took.Seconds())
		r.candidates.Observe(float64(considered))
	}
}
