// Package metrics exposes feed statistics in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/models"
)

// Outcome labels.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeConfiguration = "configuration_error"
	OutcomeError         = "error"
)

// ModelUnknown labels failed feeds. The requested model id comes from the
// client and is never used as a label value.
const ModelUnknown = "unknown"

// Metrics holds the gateway collectors on a private registry so that
// several servers (and tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	feedRequests  *prometheus.CounterVec
	itemsIncluded *prometheus.CounterVec
	itemsExcluded *prometheus.CounterVec
	compressions  *prometheus.CounterVec
	utilization   *prometheus.HistogramVec
	httpDuration  *prometheus.HistogramVec
}

// New registers every collector. Go runtime and process collectors are
// included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxfeed",
			Name:      "feed_requests_total",
			Help:      "Feed requests by model and outcome.",
		}, []string{"model", "outcome"}),
		itemsIncluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxfeed",
			Name:      "items_included_total",
			Help:      "Context items placed into assembled messages, by tier.",
		}, []string{"tier"}),
		itemsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxfeed",
			Name:      "items_excluded_total",
			Help:      "Context items dropped for lack of budget, by tier.",
		}, []string{"tier"}),
		compressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxfeed",
			Name:      "compressed_items_total",
			Help:      "Items that were compressed to fit, by model.",
		}, []string{"model"}),
		utilization: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctxfeed",
			Name:      "budget_utilization_ratio",
			Help:      "Consumed over available input tokens per feed.",
			Buckets:   []float64{0.25, 0.5, 0.75, 0.9, 1, 1.25, 2},
		}, []string{"model"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctxfeed",
			Name:      "http_request_duration_seconds",
			Help:      "Gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(m.feedRequests, m.itemsIncluded, m.itemsExcluded, m.compressions, m.utilization, m.httpDuration)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFeed records one feed attempt. Model labels come only from
// successful results, whose model the registry resolved.
func (m *Metrics) ObserveFeed(_ string, res *feedctx.FeedResult, err error) {
	if err != nil || res == nil {
		m.feedRequests.WithLabelValues(ModelUnknown, outcomeFor(err)).Inc()
		return
	}

	m.feedRequests.WithLabelValues(res.Model, OutcomeOK).Inc()
	compressed := 0
	for _, it := range res.IncludedItems {
		m.itemsIncluded.WithLabelValues(it.Tier.String()).Inc()
		if it.Compressed {
			compressed++
		}
	}
	for _, it := range res.ExcludedItems {
		m.itemsExcluded.WithLabelValues(it.Tier.String()).Inc()
	}
	if compressed > 0 {
		m.compressions.WithLabelValues(res.Model).Add(float64(compressed))
	}
	if res.Budget.AvailableForInput > 0 {
		m.utilization.WithLabelValues(res.Model).Observe(float64(res.Budget.Consumed) / float64(res.Budget.AvailableForInput))
	}
}

// ObserveHTTP records the latency of one request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, feedctx.ErrEmptyModel):
		return OutcomeInvalid
	case errors.Is(err, models.ErrConfiguration):
		return OutcomeConfiguration
	default:
		return OutcomeError
	}
}
