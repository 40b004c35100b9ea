// Package telemetry exposes prometheus collectors for the ingestion
// pipeline plus a low-overhead HTTP middleware. Collectors are registered on
// the default registry and served by promhttp in internal/app.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ingestd/pkg/logger"
)

// Requests slower than this are logged even when request logging is quiet.
var slowThreshold = 200 * time.Millisecond

var (
	IngestionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_ingestions_created_total",
		Help: "Ingestions admitted.",
	})
	BatchesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_batches_enqueued_total",
		Help: "Batches placed on the dispatch queue.",
	})
	BatchesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_batches_dispatched_total",
		Help: "Batches handed to background processing.",
	})
	BatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_batches_completed_total",
		Help: "Batches whose unit-of-work fan-out fully joined.",
	})
	UnitOfWorkFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestd_unit_of_work_faults_total",
		Help: "Faults caught at the background task boundary.",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingestd_queue_depth",
		Help: "Entries currently pending in the dispatch queue.",
	})
	DispatchGap = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestd_dispatch_gap_seconds",
		Help:    "Observed interval between consecutive dispatches.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestd_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency and logs slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		httpDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())
		if elapsed >= slowThreshold {
			logger.Warn("slow_request",
				"method", r.Method, "path", r.URL.Path,
				"status", rec.status, "duration_ms", elapsed.Milliseconds())
		}
	})
}
