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
)

// Collector owns the process's Prometheus registry and the domain counters.
// It satisfies the observer interfaces of mealdb, pantry, likes and planner.
type Collector struct {
	registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	intersections   *prometheus.CounterVec
	likeToggles     *prometheus.CounterVec
	planMutations   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		catalogRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_catalog_requests_total",
			Help: "Recipe catalog requests by operation and result",
		}, []string{"operation", "result"}),
		catalogDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantry_catalog_request_duration_seconds",
			Help:    "Recipe catalog request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		intersections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_intersections_total",
			Help: "Ingredient intersection computations by outcome",
		}, []string{"outcome"}),
		likeToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_like_toggles_total",
			Help: "Liked-meal toggles by resulting state",
		}, []string{"state"}),
		planMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_plan_mutations_total",
			Help: "Meal plan changes by operation",
		}, []string{"operation"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveCatalogRequest(operation string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.catalogRequests.WithLabelValues(operation, result).Inc()
	c.catalogDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveIntersection(outcome string) {
	c.intersections.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveLikeToggle(liked bool) {
	state := "unliked"
	if liked {
		state = "liked"
	}
	c.likeToggles.WithLabelValues(state).Inc()
}

func (c *Collector) ObservePlanMutation(op string) {
	c.planMutations.WithLabelValues(op).Inc()
}

// Middleware records request counts and latency labelled by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
