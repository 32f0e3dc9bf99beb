package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiCallsLatencyMs, retryAttemptsTotal)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "External call latency distribution in milliseconds, per operation.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"op", "success"},
	)

	retryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retry_attempts_total",
			Help: "Count of transient-failure retries per operation.",
		},
		[]string{"op"},
	)
)

func ObserveAICall(op string, success bool, d time.Duration) {
	aiCallsLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}

func IncRetry(op string) {
	retryAttemptsTotal.WithLabelValues(norm(op)).Inc()
}
