// Package metrics exposes Prometheus collectors for the gateway and scraper.
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

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	auditDispatchTotal         *prometheus.CounterVec
	auditDispatchSeconds       prometheus.Histogram
	scrapesTotal               *prometheus.CounterVec
	scrapeBytesTotal           *prometheus.CounterVec
	consentWritesTotal         *prometheus.CounterVec
	checklistOpsTotal          *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		auditDispatchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_audit_dispatch_total",
				Help: "Audit requests forwarded to the scraper, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		auditDispatchSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compliance_audit_dispatch_seconds",
				Help:    "Latency of the outbound audit call.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_scrapes_total",
				Help: "Pages audited by the scraper, labeled by site and verdict.",
			},
			[]string{"site", "verdict"},
		)

		scrapeBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_scrape_bytes_total",
				Help: "Bytes fetched by the scraper, labeled by site.",
			},
			[]string{"site"},
		)

		consentWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_consent_writes_total",
				Help: "Consent template writes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		checklistOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_checklist_operations_total",
				Help: "Checklist reads and writes, labeled by operation and outcome.",
			},
			[]string{"op", "outcome"},
		)
	})
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Outcome maps an error onto an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
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

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAuditDispatch records one outbound audit call.
func ObserveAuditDispatch(outcome string, duration time.Duration) {
	auditDispatchTotal.WithLabelValues(outcome).Inc()
	auditDispatchSeconds.Observe(duration.Seconds())
}

// ObserveScrape records one scraper verdict ("pass", "fail" or "error").
func ObserveScrape(site, verdict string, bytesFetched int) {
	sanitized := SanitizeSite(site)
	scrapesTotal.WithLabelValues(sanitized, verdict).Inc()
	if bytesFetched > 0 {
		scrapeBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
}

// ObserveConsentWrite records a consent template write.
func ObserveConsentWrite(outcome string) {
	consentWritesTotal.WithLabelValues(outcome).Inc()
}

// ObserveChecklist records a checklist operation ("add" or "list").
func ObserveChecklist(op, outcome string) {
	checklistOpsTotal.WithLabelValues(op, outcome).Inc()
}
