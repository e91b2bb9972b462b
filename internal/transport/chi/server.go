// Package chi exposes the voxhome HTTP API on a go-chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	healthuc "github.com/kailas-cloud/voxhome/internal/usecase/health"
)

// Error codes returned in error bodies.
const (
	CodeBadRequest           = "bad_request"
	CodeValidationFailed     = "validation_failed"
	CodeUnauthorized         = "unauthorized"
	CodeNotFound             = "not_found"
	CodeDeviceNotFound       = "device_not_found"
	CodeDocumentNotFound     = "document_not_found"
	CodeAlreadyExists        = "already_exists"
	CodeConfigurationMissing = "configuration_missing"
	CodeProviderError        = "embedding_provider_error"
	CodeUpstreamError        = "upstream_error"
	CodePipelineFailed       = "pipeline_failed"
	CodeInternalError        = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options tunes request handling.
type Options struct {
	// TTSDir is served under /tts/.
	TTSDir string
	// MaxUploadBytes bounds multipart audio uploads.
	MaxUploadBytes int64
	// PublicBaseURL, when set, replaces the request host in audio URLs.
	PublicBaseURL string
}

// Server holds the HTTP handlers.
type Server struct {
	voice         VoicePipeline
	knowledge     Knowledge
	devices       Devices
	chats         ChatHistory
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	voice VoicePipeline,
	kb Knowledge,
	devices Devices,
	chats ChatHistory,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	s := &Server{
		voice:     voice,
		knowledge: kb,
		devices:   devices,
		chats:     chats,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDeviceNotFound, http.StatusNotFound, CodeDeviceNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrDeviceExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrConfigurationMissing,
			http.StatusInternalServerError, CodeConfigurationMissing),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrTransportFailure, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrEmptyResult, http.StatusBadGateway, CodeUpstreamError),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/tts/{file}", s.ServeAudio)

	r.Route("/api/voice", func(r gochi.Router) {
		r.Get("/health", s.VoiceHealth)
		r.Post("/upload", s.UploadVoice)
		r.Post("/tts", s.SynthesizePost)
		r.Get("/tts", s.SynthesizeGet)
		r.Get("/qwen", s.AskText)
		r.Post("/qwen-asr-upload", s.AskUpload)
	})

	r.Route("/api/vector", func(r gochi.Router) {
		r.Post("/documents", s.AddDocument)
		r.Post("/documents/batch", s.AddDocuments)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Delete("/documents", s.DeleteDocumentsBySource)
		r.Get("/search", s.SearchGet)
		r.Post("/search", s.SearchPost)
		r.Get("/stats", s.Stats)
		r.Post("/clear", s.Clear)
		r.Post("/sync-from-devices", s.SyncFromDevices)
	})

	r.Route("/api/device", func(r gochi.Router) {
		r.Get("/", s.ListDevices)
		r.Get("/list", s.ListDevices)
		r.Post("/", s.CreateDevice)
		r.Post("/control", s.ControlDevices)
		r.Get("/{id}", s.GetDevice)
		r.Put("/{id}", s.UpdateDevice)
		r.Delete("/{id}", s.DeleteDevice)
	})

	r.Get("/api/chat/history", s.ChatHistory)
}

// Handler returns a router with every endpoint mounted and no middleware.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	s.Routes(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Error: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDeviceNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrDeviceExists,
		domain.ErrConfigurationMissing,
		domain.ErrEmbeddingProviderError,
		domain.ErrTransportFailure,
		domain.ErrEmptyResult,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		// Validation messages are built from request fields, so they are safe to echo.
		if errors.Is(err, domain.ErrInvalidInput) {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("Domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, safeDomainMessage(err))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v) //nolint:wrapcheck // reported to the client as-is
}
