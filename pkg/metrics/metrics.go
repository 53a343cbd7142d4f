// Package metrics exposes prometheus metrics for curation jobs, shortest
// path searches and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several collectors can coexist in
// one process, e.g. in tests.
type Collector struct {
	registry *prometheus.Registry

	Jobs        *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	NodesMerged *prometheus.CounterVec
	EdgesLinked prometheus.Counter
	Paths       *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "curation_jobs_total",
				Help:      "Curation jobs processed by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "curation_job_duration_seconds",
				Help:      "Duration of curation jobs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		NodesMerged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_merged_total",
				Help:      "Nodes removed by merging, by merge strategy",
			},
			[]string{"kind"},
		),
		EdgesLinked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_linked_total",
				Help:      "Edges created by cross reference linking",
			},
		),
		Paths: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "path_searches_total",
				Help:      "Shortest path searches by result (found, none, error)",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.Jobs,
		c.JobDuration,
		c.NodesMerged,
		c.EdgesLinked,
		c.Paths,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveJob records one finished curation job.
func (c *Collector) ObserveJob(kind string, start time.Time, err error) {
	status := "done"
	if err != nil {
		status = "failed"
	}
	c.Jobs.WithLabelValues(kind, status).Inc()
	c.JobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (c *Collector) ObserveMerge(kind string, removed int) {
	c.NodesMerged.WithLabelValues(kind).Add(float64(removed))
}

func (c *Collector) ObserveLink(created int) {
	c.EdgesLinked.Add(float64(created))
}

// ObservePath records a search; found tells whether a target was reached.
func (c *Collector) ObservePath(found bool, err error) {
	switch {
	case err != nil:
		c.Paths.WithLabelValues("error").Inc()
	case found:
		c.Paths.WithLabelValues("found").Inc()
	default:
		c.Paths.WithLabelValues("none").Inc()
	}
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
