package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Completion outcomes, one per terminal state of a completion request.
const (
	OutcomeDone             = "done"
	OutcomeRejected         = "upstream_rejected"
	OutcomeEmpty            = "empty_response"
	OutcomeIterationFailed  = "iteration_failed"
	OutcomeCanceled         = "canceled"
	OutcomeConfigurationErr = "configuration_error"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	completionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_completions_total",
			Help: "Completion requests by model and terminal outcome",
		},
		[]string{"model", "outcome"},
	)

	completionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_completion_duration_seconds",
			Help:    "Wall time from request start to the terminal event",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"model"},
	)

	timeToFirstChunk = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_completion_ttft_seconds",
			Help:    "Time until the first content chunk was relayed",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	tokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_estimated_tokens_total",
			Help: "Estimated tokens accounted, by direction (input, output, image)",
		},
		[]string{"direction"},
	)

	costTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_estimated_cost_dollars_total",
			Help: "Estimated spend including margin",
		},
	)

	realtimeActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_realtime_connections",
			Help: "Open realtime transcription relays",
		},
	)

	httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ObserveCompletion records the terminal state of one completion request.
func ObserveCompletion(model, outcome string, seconds float64) {
	if model == "" {
		model = "unknown"
	}
	completionsTotal.WithLabelValues(model, outcome).Inc()
	if seconds >= 0 {
		completionDuration.WithLabelValues(model).Observe(seconds)
	}
}

// ObserveTTFT records the time to first relayed chunk.
func ObserveTTFT(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	timeToFirstChunk.Observe(seconds)
}

// AddTokens adds estimated token counts.
func AddTokens(input, output, image int) {
	tokensTotal.WithLabelValues("input").Add(float64(input))
	tokensTotal.WithLabelValues("output").Add(float64(output))
	if image > 0 {
		tokensTotal.WithLabelValues("image").Add(float64(image))
	}
}

// AddCost adds estimated spend in dollars.
func AddCost(dollars float64) {
	if dollars > 0 {
		costTotal.Add(dollars)
	}
}

// RealtimeOpened marks a relay as started.
func RealtimeOpened() { realtimeActive.Inc() }

// RealtimeClosed marks a relay as finished.
func RealtimeClosed() { realtimeActive.Dec() }

// ObserveHTTP counts a finished HTTP request.
func ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Gatherer exposes the registry for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}
