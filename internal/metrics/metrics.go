// Package metrics exposes Prometheus collectors for validation runs and the
// HTTP transport.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/filecheck/internal/core"
)

// Collector holds every filecheck metric. It implements core.RunObserver.
type Collector struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	runDuration   prometheus.Histogram

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	rateLimitRejects     prometheus.Counter
}

var _ core.RunObserver = (*Collector)(nil)

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the filecheck collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		// Validation metrics
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filecheck_runs_total",
				Help: "Total number of validation runs by outcome status",
			},
			[]string{"status"},
		),
		verdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filecheck_verdicts_total",
				Help: "Total number of rule verdicts produced",
			},
			[]string{"rule", "passed"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "filecheck_run_duration_seconds",
				Help:    "Duration of validation runs in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
		),

		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filecheck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filecheck_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "filecheck_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
		rateLimitRejects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "filecheck_rate_limit_rejects_total",
				Help: "Total number of requests rejected due to rate limiting",
			},
		),
	}
}

// Registry returns the registry backing c.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun counts the run and each of its verdicts. Runs that never
// started report a zero elapsed time and are not timed.
func (c *Collector) ObserveRun(out core.Outcome, elapsed time.Duration) {
	c.runsTotal.WithLabelValues(string(out.Status)).Inc()
	for _, v := range out.Verdicts {
		c.verdictsTotal.WithLabelValues(v.Rule, strconv.FormatBool(v.Passed)).Inc()
	}
	if elapsed > 0 {
		c.runDuration.Observe(elapsed.Seconds())
	}
}

// RateLimited counts one rejected request.
func (c *Collector) RateLimited() {
	c.rateLimitRejects.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware instruments requests by chi route pattern, so path parameters
// do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c.httpRequestsInFlight.Inc()
		defer c.httpRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		c.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
