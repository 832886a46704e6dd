// Package metrics holds the Prometheus collectors of the image service.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

type Collector struct {
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	decisions        *prometheus.CounterVec
	generations      *prometheus.CounterVec
	generationTime   *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector registers every collector on reg. A nil reg uses a fresh
// private registry, which keeps tests independent of the global one.
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	c := &Collector{gatherer: reg}

	c.providerRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Search provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)
	c.providerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Search provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
	c.decisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_decisions_total",
			Help:      "Image source decisions by path (keyword, llm, fallback)",
		},
		[]string{"decision", "path"},
	)
	c.generations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Image generation attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)
	c.generationTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Image generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)
	c.cacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_lookups_total",
			Help:      "Aggregated search cache lookups by result",
		},
		[]string{"result"},
	)
	c.httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	return c
}

func (c *Collector) RecordProvider(provider, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.providerRequests.WithLabelValues(provider, outcome).Inc()
	c.providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (c *Collector) RecordDecision(decision, path string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(decision, path).Inc()
}

func (c *Collector) RecordGeneration(backend string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.generations.WithLabelValues(backend, outcome).Inc()
	c.generationTime.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
