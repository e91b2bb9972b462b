package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/bootstrap"
	"github.com/kailas-cloud/voxhome/internal/config"
	dbRedis "github.com/kailas-cloud/voxhome/internal/db/redis"
	"github.com/kailas-cloud/voxhome/internal/domain/audio"
	logpkg "github.com/kailas-cloud/voxhome/internal/logger"
	"github.com/kailas-cloud/voxhome/internal/metrics"
	auditrepo "github.com/kailas-cloud/voxhome/internal/repository/audit"
	devicerepo "github.com/kailas-cloud/voxhome/internal/repository/device"
	chiTransport "github.com/kailas-cloud/voxhome/internal/transport/chi"
	"github.com/kailas-cloud/voxhome/internal/transport/dashscope"
	devicecmd "github.com/kailas-cloud/voxhome/internal/transport/device"
	openaiTransport "github.com/kailas-cloud/voxhome/internal/transport/openai"
	"github.com/kailas-cloud/voxhome/internal/transport/paddle"
	chatuc "github.com/kailas-cloud/voxhome/internal/usecase/chat"
	deviceuc "github.com/kailas-cloud/voxhome/internal/usecase/device"
	"github.com/kailas-cloud/voxhome/internal/usecase/dispatch"
	embeddinguc "github.com/kailas-cloud/voxhome/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/voxhome/internal/usecase/health"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
	"github.com/kailas-cloud/voxhome/internal/usecase/pipeline"
	"github.com/kailas-cloud/voxhome/internal/usecase/retrieval"
	"github.com/kailas-cloud/voxhome/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting voxhome API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("voice_mode", cfg.Voice.Mode),
		zap.Bool("mock", cfg.Voice.Mock),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)
	if !cfg.OnlineKeySet() {
		logger.Warn("Online API key is not configured; online flows will fail fast")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterVoiceMetrics()

	// Embedding gateway
	gateway := embeddinguc.NewGateway(bootstrap.Embedder(cfg, store, logger), logger)

	// Semantic store
	vectors := bootstrap.VectorStore(cfg, store, logger)
	if err := vectors.Load(ctx); err != nil {
		logger.Fatal("Failed to load vector store", zap.Error(err))
	}
	logger.Info("Vector store loaded",
		zap.String("type", cfg.VectorStore.Type),
		zap.Int("documents", vectors.Size()),
	)

	// Repositories and services
	devices := devicerepo.New(store, cfg.Storage.KeyPrefix)
	audits := auditrepo.New(store, cfg.Storage.KeyPrefix)

	knowledgeSvc := knowledge.New(vectors, gateway, devices, cfg.VectorStore.Type, logger)
	retrievalSvc := retrieval.New(vectors, gateway, retrieval.Config{
		Enabled:  cfg.RAG.IsEnabled(),
		TopK:     cfg.RAG.TopK,
		MinScore: cfg.RAG.Threshold(),
	}, logger)

	commander := devicecmd.NewHTTPCommander(time.Duration(cfg.Dispatch.TimeoutSec)*time.Second, logger)
	dispatcher := dispatch.NewDispatcher(devices, commander, logger)
	pool := dispatcher.StartPool(dispatch.PoolConfig{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
		Timeout:   time.Duration(cfg.Dispatch.TimeoutSec) * time.Second,
	})

	deviceSvc := deviceuc.New(devices, dispatcher, knowledgeSvc, logger)
	chatSvc := chatuc.New(audits, knowledgeSvc, logger)

	local, online := buildBackends(cfg, logger)
	voice := online
	if cfg.Voice.Mode == string(pipeline.ModeLocal) {
		voice = local
	}

	if cfg.Voice.Mock {
		if err := writeMockReply(cfg.Voice.TTSDir); err != nil {
			logger.Fatal("Failed to prepare mock reply", zap.Error(err))
		}
	}

	orchestrator := pipeline.New(pipeline.Config{
		Mode:              pipeline.Mode(cfg.Voice.Mode),
		Mock:              cfg.Voice.Mock,
		OnlineKeySet:      cfg.OnlineKeySet(),
		TTSDir:            cfg.Voice.TTSDir,
		SegmentRunes:      cfg.TTS.SegmentRunes,
		TranscribeTimeout: time.Duration(cfg.ASR.TimeoutSec) * time.Second,
		SynthesizeTimeout: time.Duration(cfg.TTS.TimeoutSec) * time.Second,
	}, pipeline.Deps{
		Voice:      voice,
		Online:     online,
		Retriever:  retrievalSvc,
		Dispatcher: dispatcher,
		Audit:      chatSvc,
	}, logger)

	// Health service
	components := []healthuc.Component{
		healthuc.Database(store),
		healthuc.Provider("embedding", gateway),
	}
	if !cfg.Voice.Mock {
		if hc, ok := voice.Generator.(healthuc.Checker); ok {
			components = append(components, healthuc.Provider("llm", hc))
		}
	}
	healthSvc := healthuc.New(logger, components...)

	// Create chi server
	server := chiTransport.NewServer(orchestrator, knowledgeSvc, deviceSvc, chatSvc, healthSvc,
		chiTransport.Options{
			TTSDir:         cfg.Voice.TTSDir,
			MaxUploadBytes: cfg.Voice.MaxUploadBytes,
			PublicBaseURL:  cfg.Voice.PublicBaseURL,
		}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Drain queued device commands after the last request has finished.
	if err := pool.Close(); err != nil {
		logger.Error("Error draining dispatch pool", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildBackends returns the local (PaddleSpeech + vLLM) and online (DashScope) backends.
func buildBackends(cfg config.Config, logger *zap.Logger) (local, online pipeline.Backends) {
	paddleCLI := paddle.New(&paddle.Config{
		Command:    cfg.Voice.PaddleSpeechCmd,
		TempDir:    cfg.Voice.TempDir,
		ASRTimeout: time.Duration(cfg.ASR.TimeoutSec) * time.Second,
		TTSTimeout: time.Duration(cfg.TTS.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	local = pipeline.Backends{
		Transcriber: paddleCLI,
		Generator: openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:  cfg.LLM.Local.APIKey,
			BaseURL: bootstrap.V1(cfg.LLM.Local.BaseURL),
			Model:   cfg.LLM.Local.Model,
			Logger:  logger,
		}),
		Synthesizer: paddleCLI,
	}

	key := cfg.LLM.Online.APIKey
	online = pipeline.Backends{
		Transcriber: dashscope.NewTranscriber(&dashscope.ASRConfig{
			APIKey:  key,
			BaseURL: cfg.LLM.Online.BaseURL,
			Model:   cfg.ASR.Model,
			Timeout: time.Duration(cfg.ASR.TimeoutSec) * time.Second,
			Logger:  logger,
		}),
		Generator: openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:  key,
			BaseURL: bootstrap.V1(cfg.LLM.Online.BaseURL),
			Model:   cfg.LLM.Online.Model,
			Logger:  logger,
		}),
		Synthesizer: dashscope.NewSynthesizer(&dashscope.TTSConfig{
			APIKey:   key,
			URL:      cfg.TTS.URL,
			Model:    cfg.TTS.Model,
			Voice:    cfg.TTS.Voice,
			Language: cfg.TTS.Language,
			Timeout:  time.Duration(cfg.TTS.TimeoutSec) * time.Second,
			Logger:   logger,
		}),
	}
	return local, online
}

// writeMockReply places one second of silence where mock runs point their audio URL.
func writeMockReply(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create tts dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, pipeline.MockFile))
	if err != nil {
		return fmt.Errorf("create mock reply: %w", err)
	}
	if err := audio.WriteSilence(f, 16000, time.Second); err != nil {
		_ = f.Close()
		return fmt.Errorf("write mock reply: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close mock reply: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":  chiTransport.CodeInternalError,
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
