// Package monitoring provides Prometheus metrics for the coaching API.
//
// Setup:
//
//	router := gin.New()
//	monitoring.SetupPrometheusMetrics(router)
//	router.Use(monitoring.HTTPMetricsMiddleware())
//
// Pipeline code records domain metrics directly:
//
//	monitoring.RecordChatMessage("LIST_CALLS", true, "")
//	monitoring.RecordLLMCall("openai", "classify", time.Since(start), err == nil)
//	monitoring.RecordSearch("vector", time.Since(start), err == nil)
//	monitoring.RecordCacheOperation("get", "hit")
package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcoach_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	chatMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_chat_messages_total",
			Help: "Total number of chat messages processed, by intent and outcome",
		},
		[]string{"intent", "status", "category"},
	)

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_llm_calls_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"provider", "operation", "status"},
	)

	llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcoach_core_llm_call_duration_seconds",
			Help:    "LLM provider call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50},
		},
		[]string{"provider", "operation"},
	)

	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_searches_total",
			Help: "Total number of call searches, by backend",
		},
		[]string{"backend", "status"}, // backend: vector, keyword
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callcoach_core_search_duration_seconds",
			Help:    "Call search duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, error
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"}, // success, failure
	)

	scopeDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_scope_denials_total",
			Help: "Total number of data-scope permission denials, by caller role",
		},
		[]string{"role"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "callcoach_core_active_connections",
			Help: "Number of active connections",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callcoach_core_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// SetupPrometheusMetrics registers the metric set and exposes /metrics.
func SetupPrometheusMetrics(router gin.IRoutes) {
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "callcoach_core_build_info",
		Help: "Build information for callcoach-core",
		ConstLabels: prometheus.Labels{
			"component": "callcoach-core",
		},
	}, func() float64 { return 1 }))

	// Ignore duplicate-registration errors so tests can call this twice.
	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(chatMessagesTotal)
	_ = prometheus.Register(llmCallsTotal)
	_ = prometheus.Register(llmCallDuration)
	_ = prometheus.Register(searchesTotal)
	_ = prometheus.Register(searchDuration)
	_ = prometheus.Register(cacheOperationsTotal)
	_ = prometheus.Register(authAttemptsTotal)
	_ = prometheus.Register(scopeDenialsTotal)
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(errorsTotal)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects per-request metrics.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		endpoint := normalizeEndpoint(c.Request.URL.Path)

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordChatMessage records one processed chat message. category is the
// failure category, empty on success.
func RecordChatMessage(intent string, success bool, category string) {
	status := "success"
	if !success {
		status = "error"
	}
	if category == "" {
		category = "none"
	}
	chatMessagesTotal.WithLabelValues(intent, status, category).Inc()
}

// RecordLLMCall records one LLM provider round trip.
func RecordLLMCall(provider, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("llm", provider).Inc()
	}
	llmCallsTotal.WithLabelValues(provider, operation, status).Inc()
	llmCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordSearch records one call-search execution.
func RecordSearch(backend string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("search", backend).Inc()
	}
	searchesTotal.WithLabelValues(backend, status).Inc()
	searchDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordCacheOperation records cache operation metrics.
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordAuthAttempt records authentication attempt metrics.
func RecordAuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
	if result == "failure" {
		errorsTotal.WithLabelValues("auth", "jwt").Inc()
	}
}

// RecordScopeDenial records a data-scope permission denial.
func RecordScopeDenial(role string) {
	if role == "" {
		role = "unknown"
	}
	scopeDenialsTotal.WithLabelValues(role).Inc()
}

// normalizeEndpoint collapses id-like path segments so metric
// cardinality stays bounded.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i > 0 && looksLikeID(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func looksLikeID(s string) bool {
	if s == "" {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return hasDigit
}
