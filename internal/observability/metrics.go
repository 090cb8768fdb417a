package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	webhookCounter        *prometheus.CounterVec
	transferCounter       *prometheus.CounterVec
	depositCounter        *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		webhookCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook processing outcomes",
		}, []string{"outcome"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Wallet-to-wallet transfer outcomes",
		}, []string{"outcome"})

		depositCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_deposits_total",
			Help: "Deposit initiation outcomes",
		}, []string{"outcome"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			webhookCounter,
			transferCounter,
			depositCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWebhook(outcome string) {
	if webhookCounter == nil {
		return
	}
	webhookCounter.WithLabelValues(outcome).Inc()
}

func IncrementTransfer(outcome string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(outcome).Inc()
}

func IncrementDeposit(outcome string) {
	if depositCounter == nil {
		return
	}
	depositCounter.WithLabelValues(outcome).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
