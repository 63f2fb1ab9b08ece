package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of orders stored in the ledger",
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_updates_total",
		Help: "Total number of order status rewrites",
	}, []string{"status"})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_latency_seconds",
		Help:    "Latency of checkout including ledger and catalog rewrites",
		Buckets: prometheus.DefBuckets,
	})

	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Total number of cart mutations",
	}, []string{"op"})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_persistence_failures_total",
		Help: "Total number of failed backing file rewrites",
	}, []string{"store"})

	MalformedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_malformed_records_total",
		Help: "Total number of records skipped while loading backing files",
	}, []string{"store"})

	FileRewriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_file_rewrite_latency_seconds",
		Help:    "Latency of full backing file rewrites",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
