// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome and status label values.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"

	StatusOK    = "ok"
	StatusError = "error"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	scraperFetchesTotal        *prometheus.CounterVec
	scraperFetchBytesTotal     *prometheus.CounterVec
	scraperRecordsTotal        *prometheus.CounterVec
	scraperRejectionsTotal     *prometheus.CounterVec
	scraperSinkWritesTotal     *prometheus.CounterVec
	scraperRobotsFallbackTotal prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of pages handled, labeled by page type.",
			},
			[]string{"type"},
		)

		scraperFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetches_total",
				Help: "Total number of fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		scraperFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		scraperRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_records_total",
				Help: "Total number of records validated, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		scraperRejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_rejections_total",
				Help: "Total number of rule violations, labeled by field.",
			},
			[]string{"field"},
		)

		scraperSinkWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_sink_writes_total",
				Help: "Total number of sink writes, labeled by sink and status.",
			},
			[]string{"sink", "status"},
		)

		scraperRobotsFallbackTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_robots_fallback_total",
				Help: "Total robots.txt probes that timed out and fell back to allow-all.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a handled page by type.
func ObservePage(pageType string) {
	Init()
	scraperPagesTotal.WithLabelValues(pageType).Inc()
}

// ObserveFetch counts a fetch and the bytes it returned.
func ObserveFetch(site string, status int, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	scraperFetchesTotal.WithLabelValues(sanitizedSite, strconv.Itoa(status)).Inc()
	if bytesFetched > 0 {
		scraperFetchBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveRecord counts a validation outcome.
func ObserveRecord(kind, outcome string) {
	Init()
	scraperRecordsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRejection counts the fields named by a rejection.
func ObserveRejection(fields []string) {
	Init()
	for _, f := range fields {
		scraperRejectionsTotal.WithLabelValues(f).Inc()
	}
}

// ObserveSinkWrite counts a sink write attempt.
func ObserveSinkWrite(sink string, err error) {
	Init()
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	scraperSinkWritesTotal.WithLabelValues(sink, status).Inc()
}

// ObserveRobotsFallback counts a robots.txt probe that fell back to allow-all.
func ObserveRobotsFallback() {
	Init()
	scraperRobotsFallbackTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
