// Package metrics exposes relay counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anomredux/claude-relay/internal/parser"
)

const namespace = "claude_relay"

type Metrics struct {
	registry *prometheus.Registry

	RecordsKept     prometheus.Counter
	LinesSkipped    *prometheus.CounterVec
	FilesUnreadable prometheus.Counter
	FilesScanned    prometheus.Counter

	ReportBuilds  prometheus.Counter
	BuildDuration prometheus.Histogram
	CacheLookups  *prometheus.CounterVec

	RemoteFetches *prometheus.CounterVec

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		RecordsKept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_kept_total",
			Help:      "Usage records kept after parsing and dedup",
		}),
		LinesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "lines_skipped_total",
			Help:      "Log lines skipped, by reason",
		}, []string{"reason"}),
		FilesUnreadable: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_unreadable_total",
			Help:      "Log files that could not be read",
		}),
		FilesScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_scanned_total",
			Help:      "Log files opened",
		}),
		ReportBuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "builds_total",
			Help:      "Report rebuilds",
		}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "build_duration_seconds",
			Help:      "Report rebuild duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "cache_lookups_total",
			Help:      "Report cache lookups, by result",
		}, []string{"result"}),
		RemoteFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "fetches_total",
			Help:      "Usage API fetches, by outcome",
		}, []string{"outcome"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
	}
	for _, r := range parser.SkipReasons {
		m.LinesSkipped.WithLabelValues(string(r))
	}
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBuild records one report rebuild and the ingest pass behind it.
func (m *Metrics) ObserveBuild(stats parser.Stats, elapsed time.Duration) {
	m.ReportBuilds.Inc()
	m.BuildDuration.Observe(elapsed.Seconds())
	m.RecordsKept.Add(float64(stats.Kept))
	m.FilesScanned.Add(float64(stats.Files))
	m.FilesUnreadable.Add(float64(stats.FilesUnreadable))
	for reason, n := range stats.Skipped {
		m.LinesSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// ObserveCache records a report cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveRemote records the outcome of a usage API fetch.
func (m *Metrics) ObserveRemote(outcome string) {
	m.RemoteFetches.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
