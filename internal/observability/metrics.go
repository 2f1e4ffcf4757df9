package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	captureStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_capture_streams_total",
		Help: "Capture streams by source and outcome",
	}, []string{"source", "outcome"})

	captureSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dictate_capture_duration_seconds",
		Help:    "Length of captured audio per stream",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"source"})

	transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_transcriptions_total",
		Help: "Transcription requests by backend and status",
	}, []string{"backend", "status"})

	transcriptionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dictate_transcription_latency_seconds",
		Help:    "Transcription latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}, []string{"backend"})

	modelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_model_loads_total",
		Help: "Local model loads by size, device, compute type and outcome",
	}, []string{"size", "device", "compute_type", "outcome"})
)

// RecordCapture records the outcome of one capture stream.
func RecordCapture(source, outcome string, seconds float64) {
	captureStreams.WithLabelValues(source, outcome).Inc()
	if seconds > 0 {
		captureSeconds.WithLabelValues(source).Observe(seconds)
	}
}

// RecordTranscription records a finished transcription call.
func RecordTranscription(backend string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	transcriptions.WithLabelValues(backend, status).Inc()
	transcriptionLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// RecordModelLoad records one local model construction attempt.
func RecordModelLoad(size, device, computeType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	modelLoads.WithLabelValues(size, device, computeType, outcome).Inc()
}

// ServeMetrics exposes /metrics on addr until ctx is done. An empty addr
// disables the endpoint.
func ServeMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()
}
