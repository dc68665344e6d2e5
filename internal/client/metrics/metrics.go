// Package metrics exposes Prometheus instruments for the API client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carpool_client"

// Collector owns a private registry so several clients (and tests) do not
// collide on the default one.
type Collector struct {
	reg *prometheus.Registry

	// RequestsTotal counts finished requests by verb and outcome code
	RequestsTotal *prometheus.CounterVec
	// RequestLatency tracks request latency, retries included
	RequestLatency *prometheus.HistogramVec
	// RetriesTotal counts automatic retries by reason
	RetriesTotal *prometheus.CounterVec
	// RefreshTotal counts refresh calls by result
	RefreshTotal *prometheus.CounterVec
	// RefreshLatency tracks refresh call latency
	RefreshLatency prometheus.Histogram
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "code"},
		),
		RequestLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "API request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of automatic request retries",
			},
			[]string{"reason"},
		),
		RefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Total number of access token refresh calls",
			},
			[]string{"result"},
		),
		RefreshLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_refresh_duration_seconds",
				Help:      "Access token refresh latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// ObserveRequest records a finished request. code is "OK" on success or the
// AppError code.
func (c *Collector) ObserveRequest(method, code string, elapsed time.Duration) {
	c.RequestsTotal.WithLabelValues(method, code).Inc()
	c.RequestLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveRetry(reason string) {
	c.RetriesTotal.WithLabelValues(reason).Inc()
}

// ObserveRefresh implements auth.Observer.
func (c *Collector) ObserveRefresh(ok bool, elapsed time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.RefreshTotal.WithLabelValues(result).Inc()
	c.RefreshLatency.Observe(elapsed.Seconds())
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
