// Package metrics exposes network build instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ideagraph/semnet/internal/network"
)

// Collector records build outcomes on its own registry. It implements
// network.Recorder.
type Collector struct {
	registry *prometheus.Registry

	buildsTotal     *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	networkNodes    prometheus.Histogram
	networkEdges    prometheus.Histogram
	queryFailures   *prometheus.CounterVec
	summaryFailures *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every semnet metric plus the Go runtime collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		buildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semnet_builds_total",
			Help: "Network builds by outcome",
		}, []string{"outcome"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "semnet_build_duration_seconds",
			Help:    "Wall time of a network build",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		networkNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "semnet_network_nodes",
			Help:    "Nodes in a successfully built network",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		networkEdges: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "semnet_network_edges",
			Help:    "Edges in a successfully built network",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		queryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semnet_similarity_query_failures_total",
			Help: "Failed similarity lookups by object type filter",
		}, []string{"object_type"}),
		summaryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semnet_summary_failures_total",
			Help: "Failed level summaries by level",
		}, []string{"level"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semnet_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semnet_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (c *Collector) BuildCompleted(outcome string, d time.Duration, nodes, edges int) {
	c.buildsTotal.WithLabelValues(outcome).Inc()
	c.buildDuration.Observe(d.Seconds())
	if outcome == network.OutcomeSuccess {
		c.networkNodes.Observe(float64(nodes))
		c.networkEdges.Observe(float64(edges))
	}
}

func (c *Collector) QueryFailed(objectType string) {
	if objectType == "" {
		objectType = "all"
	}
	c.queryFailures.WithLabelValues(objectType).Inc()
}

func (c *Collector) SummaryFailed(level int) {
	c.summaryFailures.WithLabelValues(strconv.Itoa(level)).Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

var _ network.Recorder = (*Collector)(nil)
