package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "logtail_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	appendTotal   *prometheus.CounterVec
	appendLatency *prometheus.HistogramVec

	queryTotal   *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	queryRows    prometheus.Histogram

	keyRejections *prometheus.CounterVec
	endpointCalls *prometheus.CounterVec
)

// Init registers the service metrics with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		appendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "append_total",
				Help: "Total appended entries by result",
			},
			[]string{"result"},
		)
		appendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "append_latency_seconds",
				Help:    "Append latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		queryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_total",
				Help: "Total tail queries by kind and result",
			},
			[]string{"kind", "result"},
		)
		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "query_latency_seconds",
				Help:    "Tail query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		)
		queryRows = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "query_rows",
				Help:    "Rows returned per tail query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
		)
		keyRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "key_rejections_total",
				Help: "Tail keys rejected at the API boundary by reason",
			},
			[]string{"reason"},
		)
		endpointCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "endpoint_calls_total",
				Help: "Endpoint completions by route and outcome",
			},
			[]string{"route", "outcome"},
		)

		prometheus.MustRegister(
			appendTotal,
			appendLatency,
			queryTotal,
			queryLatency,
			queryRows,
			keyRejections,
			endpointCalls,
		)
	})
}

// ObserveAppend records append duration and result.
func ObserveAppend(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if appendTotal != nil {
		appendTotal.WithLabelValues(result).Inc()
	}
	if appendLatency != nil {
		appendLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveQuery records a tail query by kind (tail, before, since).
func ObserveQuery(kind, result string, rows int, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if queryTotal != nil {
		queryTotal.WithLabelValues(kind, result).Inc()
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
	if queryRows != nil && result == ResultSuccess {
		queryRows.Observe(float64(rows))
	}
}

// IncKeyRejected counts a malformed or inadmissible key.
func IncKeyRejected(reason string) {
	if keyRejections != nil {
		keyRejections.WithLabelValues(reason).Inc()
	}
}

// IncEndpoint counts an endpoint completion.
func IncEndpoint(route, outcome string) {
	if endpointCalls != nil {
		endpointCalls.WithLabelValues(route, outcome).Inc()
	}
}
