package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "loadlab"

// Registry aggregates request and job observations. It is safe for
// concurrent use; every update goes through atomic prometheus primitives.
type Registry struct {
	reg *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	jobsTotal           *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	batchItemsTotal     prometheus.Counter
}

// NewRegistry creates a registry with the HTTP and job families plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route", "status"},
		),

		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of simulated jobs by kind and final status.",
			},
			[]string{"kind", "status"},
		),

		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall-clock duration of simulated jobs in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 13),
			},
			[]string{"kind"},
		),

		batchItemsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_items_processed_total",
				Help:      "Total number of batch items processed.",
			},
		),
	}

	r.reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.jobsTotal,
		r.jobDuration,
		r.batchItemsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Record adds one request observation for the (method, route, status) triple.
func (r *Registry) Record(method, route string, status int, seconds float64) {
	code := strconv.Itoa(status)
	r.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	r.httpRequestDuration.WithLabelValues(method, route, code).Observe(seconds)
}

// RecordJob counts one finished job and observes its duration.
func (r *Registry) RecordJob(kind, status string, d time.Duration) {
	r.jobsTotal.WithLabelValues(kind, status).Inc()
	r.jobDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordBatchItems adds n processed batch items.
func (r *Registry) RecordBatchItems(n int) {
	if n <= 0 {
		return
	}
	r.batchItemsTotal.Add(float64(n))
}

// Export writes a snapshot of every metric family in the Prometheus text
// exposition format.
func (r *Registry) Export(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler returns the scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and embedding.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
