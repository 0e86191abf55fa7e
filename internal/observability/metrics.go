package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/panchang-bot/internal/overload"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (webhook unregistered) or spikes (update storm).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Webhook latency includes the upstream call.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Astrology API call rate by status. Watch for: client_error (403 = key lacks entitlement).
	AstroAPICallsTotal *prometheus.CounterVec

	// Astrology API latency. Watch for: p99 approaching the 10s timeout.
	AstroAPIDuration *prometheus.HistogramVec

	// Panchang lookups by outcome (success, partial, or a pipeline error kind).
	PanchangQueriesTotal *prometheus.CounterVec

	// Bot commands received (allow-list; others use command=other).
	TelegramCommandsTotal *prometheus.CounterVec

	// Bot API calls by method and result. Watch for: sendMessage errors (markup rejected).
	TelegramAPICallsTotal *prometheus.CounterVec

	// Redelivered updates dropped by the dedupe window.
	DuplicateUpdatesTotal prometheus.Counter

	// Rate limit denials on the webhook route.
	RateLimitDeniedTotal prometheus.Counter

	rateLimitGaugesOnce sync.Once
)

var knownCommands = map[string]struct{}{
	"/start":    {},
	"/help":     {},
	"/panchang": {},
}

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	AstroAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroApiCallsTotal",
			Help: "Total number of astrology API calls",
		},
		[]string{"status"},
	)
	AstroAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astroApiDurationSeconds",
			Help:    "Astrology API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	PanchangQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panchangQueriesTotal",
			Help: "Panchang lookups by outcome",
		},
		[]string{"outcome"},
	)
	TelegramCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegramCommandsTotal",
			Help: "Bot commands received (allow-list; others use command=other)",
		},
		[]string{"command"},
	)
	TelegramAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegramApiCallsTotal",
			Help: "Telegram Bot API calls by method and result",
		},
		[]string{"method", "result"},
	)
	DuplicateUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicateUpdatesTotal",
			Help: "Telegram updates dropped because their update_id was already handled",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		AstroAPICallsTotal, AstroAPIDuration,
		PanchangQueriesTotal, TelegramCommandsTotal, TelegramAPICallsTotal,
		DuplicateUpdatesTotal, RateLimitDeniedTotal,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(overload.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(overload.DenialCount(window)) },
			),
		)
	})
}

// RecordCommand counts a bot command. Unknown commands are labeled "other".
func RecordCommand(command string) {
	c := strings.ToLower(strings.TrimSpace(command))
	if _, ok := knownCommands[c]; !ok {
		c = "other"
	}
	TelegramCommandsTotal.WithLabelValues(c).Inc()
}

// RecordPanchangOutcome counts one lookup. outcome is "success", "partial" or an error kind.
func RecordPanchangOutcome(outcome string) {
	if outcome == "" {
		outcome = "unexpected"
	}
	PanchangQueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordTelegramCall counts one Bot API call.
func RecordTelegramCall(method string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	TelegramAPICallsTotal.WithLabelValues(method, result).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
