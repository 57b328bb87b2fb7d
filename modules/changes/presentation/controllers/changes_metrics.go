package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	changesAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cabflow",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of change request API calls by endpoint and status code.",
	}, []string{"endpoint", "status"})

	changesAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cabflow",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for change request API calls.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5,
		},
	}, []string{"endpoint"})
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// instrument wraps a handler with the request counter and latency histogram.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		changesAPIRequests.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
		changesAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
