package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	// Registry is local so metrics stay out of the global default registry.
	Registry = prometheus.NewRegistry()

	providerRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "alignstudio_provider_requests_total",
			Help: "Provider calls partitioned by provider, model, operation and status.",
		},
		[]string{"provider", "model", "operation", "status"},
	)
	providerLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alignstudio_provider_request_duration_seconds",
			Help:    "Provider call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider", "operation"},
	)
	responseTokens = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "alignstudio_response_tokens_total",
			Help: "Estimated completion tokens received per provider and model.",
		},
		[]string{"provider", "model"},
	)
	decisionsExtracted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "alignstudio_decisions_extracted_total",
			Help: "Structured decision extractions partitioned by outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

// ObserveCall records one provider call.
func ObserveCall(provider, model, operation string, started time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	providerRequests.WithLabelValues(provider, model, operation, status).Inc()
	providerLatency.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}

func AddResponseTokens(provider, model string, tokens int) {
	if tokens <= 0 {
		return
	}
	responseTokens.WithLabelValues(provider, model).Add(float64(tokens))
}

func ObserveExtraction(provider string, ok bool) {
	outcome := "parsed"
	if !ok {
		outcome = "empty"
	}
	decisionsExtracted.WithLabelValues(provider, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint stopped", zap.Error(err))
		}
	}()
}
