package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/config"
	"github.com/cartly-ai/shopsearch/internal/embedding"
	"github.com/cartly-ai/shopsearch/internal/engine"
	"github.com/cartly-ai/shopsearch/internal/index"
	indexMemory "github.com/cartly-ai/shopsearch/internal/index/memory"
	indexRedis "github.com/cartly-ai/shopsearch/internal/index/redis"
	"github.com/cartly-ai/shopsearch/internal/indexer"
	logpkg "github.com/cartly-ai/shopsearch/internal/logger"
	"github.com/cartly-ai/shopsearch/internal/metrics"
	chiTransport "github.com/cartly-ai/shopsearch/internal/transport/chi"
	llm "github.com/cartly-ai/shopsearch/internal/transport/openai"
	"github.com/cartly-ai/shopsearch/internal/version"
)

func main() {
	_ = godotenv.Load()

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

	logger.Info("Starting shopsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
	)

	metrics.Register()

	// Catalog: a missing snapshot degrades search to stub enrichment, it
	// does not abort startup.
	store, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Warn("running without catalog snapshot", zap.Error(err))
	}

	embedder := embedding.NewClient(&embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		User:       cfg.Embedding.User,
		Logger:     logger,
	})

	ix, closeIndex := buildIndex(cfg, embedder.Dimensions(), logger)
	defer closeIndex()

	ixr := indexer.New(embedder, ix, indexer.Config{
		EmbedBatchSize:  cfg.Index.EmbedBatchSize,
		UpsertBatchSize: cfg.Index.UpsertBatchSize,
	}, logger)

	// The memory backend starts empty every boot, so index the catalog now.
	if cfg.Index.Driver == "memory" && store.Len() > 0 {
		n, err := ixr.Index(context.Background(), store.All())
		if err != nil {
			logger.Fatal("startup indexing failed", zap.Error(err))
		}
		logger.Info("catalog indexed", zap.Int("views", n))
	}

	eng := engine.New(embedder, ix, store, logger)

	classifier := llm.NewClassifier(&llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	})
	captioner := llm.NewCaptioner(&llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.VisionModel,
		Logger:  logger,
	})
	var responder agent.Responder
	if cfg.LLM.ResponderModel != "" {
		responder = llm.NewResponder(&llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.ResponderModel,
			Logger:  logger,
		})
	}

	ag := agent.New(eng, classifier, captioner, responder, store, agent.Config{
		Name:        cfg.Agent.Name,
		Description: cfg.Agent.Description,
		SearchTopK:  cfg.Agent.SearchTopK,
	}, logger)

	server := chiTransport.NewServer(ag, eng, ixr, ix, store, embedder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.CORSOrigins))
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	logger.Info("Server stopped gracefully")
}

// buildIndex creates the configured vector index backend. The redis backend
// is also readiness-checked and has its schema ensured.
func buildIndex(cfg config.Config, dim int, logger *zap.Logger) (index.Index, func()) {
	switch cfg.Index.Driver {
	case "redis":
		rs, err := indexRedis.NewStore(indexRedis.Config{
			Addrs:     cfg.Index.Addrs,
			Username:  cfg.Index.Username,
			Password:  cfg.Index.Password,
			DB:        cfg.Index.DB,
			KeyPrefix: cfg.Index.KeyPrefix,
			Dim:       dim,
			HNSWM:     cfg.Index.HNSWM,
			HNSWEFC:   cfg.Index.HNSWEFConstruct,
		})
		if err != nil {
			logger.Fatal("Failed to create index store", zap.Error(err))
		}
		ctx := context.Background()
		timeout := time.Duration(cfg.Index.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Index store not ready", zap.Error(err))
		}
		if err := rs.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure index schema", zap.Error(err))
		}
		logger.Info("Connected to index store", zap.Strings("addrs", cfg.Index.Addrs))
		return rs, rs.Close
	default:
		return indexMemory.New(dim), func() {}
	}
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
						"code":    "internal_error",
						"message": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
