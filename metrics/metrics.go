package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Checkouts is labelled by outcome: completed, empty, failed.
	Checkouts      *prometheus.CounterVec
	CheckoutTotal  prometheus.Histogram
	// MergedLines is labelled by source: guest, local.
	MergedLines    *prometheus.CounterVec
	SkippedLines   *prometheus.CounterVec
	SessionsIssued *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcart_http_requests_total",
	}, []string{"method", "route", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopcart_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcart_checkouts_total",
	}, []string{"outcome"})
	checkoutTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopcart_checkout_amount_inr",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	})
	merged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcart_merged_lines_total",
	}, []string{"source"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcart_merge_skipped_lines_total",
	}, []string{"source", "reason"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopcart_sessions_issued_total",
	}, []string{"kind"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests, httpLatency, checkouts, checkoutTotal, merged, skipped, sessions,
	)
	return &Registry{
		reg:            r,
		HTTPRequests:   httpRequests,
		HTTPLatency:    httpLatency,
		Checkouts:      checkouts,
		CheckoutTotal:  checkoutTotal,
		MergedLines:    merged,
		SkippedLines:   skipped,
		SessionsIssued: sessions,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
