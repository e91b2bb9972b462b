package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxhome"

// Embedding provider metrics, labelled by provider and model.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding calls by outcome",
	}, []string{"provider", "model", "status"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of successful embedding calls",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Tokens reported by the provider",
	}, []string{"provider", "model", "type"})

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "errors_total",
		Help:      "Embedding failures by kind",
	}, []string{"provider", "model", "error_type"})

	// EmbeddingCacheTotal counts cache lookups; result is "hit" or "miss".
	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Embedding cache lookups by result",
	}, []string{"result"})
)

// Embedding error kinds.
const (
	EmbedErrMissingKey    = "missing_api_key"
	EmbedErrAPI           = "api_error"
	EmbedErrDecode        = "decode_error"
	EmbedErrEmpty         = "empty_response"
	EmbedErrCountMismatch = "count_mismatch"
)

// EmbeddingRecorder binds the embedding metrics to one provider and model.
type EmbeddingRecorder struct {
	provider string
	model    string
}

// NewEmbeddingRecorder returns a recorder for provider/model.
func NewEmbeddingRecorder(provider, model string) EmbeddingRecorder {
	return EmbeddingRecorder{provider: provider, model: model}
}

// Success records a completed call. Zero token counts are not reported.
func (r EmbeddingRecorder) Success(elapsed time.Duration, promptTokens, totalTokens int) {
	EmbeddingRequestsTotal.WithLabelValues(r.provider, r.model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(r.provider, r.model).Observe(elapsed.Seconds())
	if promptTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(r.provider, r.model, "prompt").Add(float64(promptTokens))
	}
	if totalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(r.provider, r.model, "total").Add(float64(totalTokens))
	}
}

// Failure records a failed call of the given kind.
func (r EmbeddingRecorder) Failure(kind string) {
	EmbeddingRequestsTotal.WithLabelValues(r.provider, r.model, "error").Inc()
	EmbeddingErrorsTotal.WithLabelValues(r.provider, r.model, kind).Inc()
}

// Partial records a call that answered with fewer vectors than inputs.
// The call itself already counted as a success.
func (r EmbeddingRecorder) Partial() {
	EmbeddingErrorsTotal.WithLabelValues(r.provider, r.model, EmbedErrCountMismatch).Inc()
}

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding collectors. Safe to call twice.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
