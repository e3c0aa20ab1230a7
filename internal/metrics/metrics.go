// Package metrics holds the Prometheus instruments exported by the proxy.
//
// All recording methods are safe to call on a nil *Metrics, which disables collection.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var vendorDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type Metrics struct {
	TransactionsOpen      prometheus.Gauge
	TransactionsTotal     *prometheus.CounterVec
	VendorRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal     *prometheus.CounterVec
}

// InitMetrics creates and registers all instruments with reg.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransactionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartcar_transactions_open",
			Help: "Number of transactions awaiting a vendor response.",
		}),
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartcar_transactions_total",
			Help: "Total number of completed transactions.",
		}, []string{"operation", "code"}),
		VendorRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartcar_vendor_request_duration_seconds",
			Help:    "Vendor request duration in seconds.",
			Buckets: vendorDurationBuckets,
		}, []string{"service"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartcar_http_requests_total",
			Help: "Total number of inbound HTTP requests.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.TransactionsOpen,
		m.TransactionsTotal,
		m.VendorRequestDuration,
		m.HTTPRequestsTotal,
	)
	return m
}

// SetTransactionsOpen records the current registry occupancy.
func (m *Metrics) SetTransactionsOpen(n int) {
	if m == nil {
		return
	}
	m.TransactionsOpen.Set(float64(n))
}

// RecordTransaction counts a completed transaction by operation and normalized result code.
func (m *Metrics) RecordTransaction(operation, code string) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(operation, code).Inc()
}

// ObserveVendorRequest has the signature of connector.Observer so it can be installed on a
// vendor connection directly.
func (m *Metrics) ObserveVendorRequest(service string, _ int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VendorRequestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Middleware counts requests by chi route pattern rather than raw path, which would let vehicle
// ids into the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordHTTPRequest(r.Method, routePattern(r), status)
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.ReplaceAll(pattern, "/*/", "/")
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}
