// Package chi implements the HTTP API: chat and search endpoints, agent info,
// admin index maintenance, health and metrics.
package chi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/filter"
	"github.com/cartly-ai/shopsearch/internal/domain/search/request"
	"github.com/cartly-ai/shopsearch/internal/engine"
	"github.com/cartly-ai/shopsearch/internal/index"
	"github.com/cartly-ai/shopsearch/internal/indexer"
)

// Error codes returned in JSON error payloads.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeUpstreamError    = "upstream_error"
	CodeIndexWriteFailed = "index_write_failed"
	CodeReindexRunning   = "reindex_running"
	CodeInternalError    = "internal_error"
)

// Server is the HTTP API server.
type Server struct {
	agent   *agent.Agent
	engine  *engine.Engine
	indexer *indexer.Indexer
	index   index.Index
	catalog *catalog.Store
	embed   domain.HealthChecker
	logger  *zap.Logger

	// Indexing is single-writer; concurrent reindex requests are rejected.
	reindexing atomic.Bool
}

// NewServer creates an HTTP API server.
func NewServer(
	ag *agent.Agent,
	eng *engine.Engine,
	ixr *indexer.Indexer,
	ix index.Index,
	store *catalog.Store,
	embed domain.HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		agent:   ag,
		engine:  eng,
		indexer: ixr,
		index:   ix,
		catalog: store,
		embed:   embed,
		logger:  logger,
	}
}

// Routes mounts all handlers on a router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.Chat)
		r.Post("/search", s.Search)
		r.Get("/agent/info", s.AgentInfo)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reindex", s.Reindex)
			r.Delete("/index", s.ClearIndex)
		})
	})
}

type chatRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Image     string         `json:"image"` // base64-encoded
	Filters   filter.Filters `json:"filters"`
}

// Chat handles POST /api/chat. The agent shapes every failure into a
// structured response, so this handler always answers 200.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" && req.Image == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "message or image is required")
		return
	}

	var image []byte
	if req.Image != "" {
		var err error
		image, err = base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "image must be base64-encoded")
			return
		}
	}

	resp := s.agent.Process(r.Context(), agent.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Image:     image,
		Filters:   req.Filters,
	})
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query         string         `json:"query"`
	Filters       filter.Filters `json:"filters"`
	TopK          int            `json:"top_k"`
	MinSimilarity *float64       `json:"min_similarity"`
}

// Search handles POST /api/search: the raw retrieval surface without the
// conversational layer.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	searchReq, err := request.New(req.Query, req.Filters, req.TopK, req.MinSimilarity)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp, err := s.engine.Search(r.Context(), searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AgentInfo handles GET /api/agent/info.
func (s *Server) AgentInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.GetInfo())
}

type reindexResponse struct {
	Products      int `json:"products"`
	ViewsUpserted int `json:"views_upserted"`
}

// Reindex handles POST /api/admin/reindex: re-derives and upserts every
// catalog product's views. Rejected while another run is in flight.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if !s.reindexing.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, CodeReindexRunning, "a reindex run is already in progress")
		return
	}
	defer s.reindexing.Store(false)

	products := s.catalog.All()
	upserted, err := s.indexer.Index(r.Context(), products)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		var werr *domain.IndexWriteError
		if errors.As(err, &werr) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"code":           CodeIndexWriteFailed,
				"message":        "indexing aborted; committed batches were not rolled back",
				"failed_batch":   werr.Batch,
				"views_upserted": werr.Succeeded,
			})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reindexResponse{
		Products:      len(products),
		ViewsUpserted: upserted,
	})
}

// ClearIndex handles DELETE /api/admin/index.
func (s *Server) ClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"index":   "ok",
		"catalog": "ok",
	}
	healthy := true

	if _, err := s.index.Describe(r.Context()); err != nil {
		checks["index"] = err.Error()
		healthy = false
	}
	if s.catalog.Degraded() {
		checks["catalog"] = "degraded: snapshot unavailable"
	}
	if s.embed != nil {
		checks["embedding"] = "ok"
		if err := s.checkEmbedding(r.Context()); err != nil {
			checks["embedding"] = err.Error()
			healthy = false
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) checkEmbedding(ctx context.Context) error {
	return s.embed.HealthCheck(ctx)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, CodeValidationFailed, domain.ErrInvalidRequest.Error())
	case errors.Is(err, domain.ErrEmbeddingProvider):
		writeError(w, http.StatusBadGateway, CodeUpstreamError, domain.ErrEmbeddingProvider.Error())
	case errors.Is(err, domain.ErrIndexQuery):
		writeError(w, http.StatusBadGateway, CodeUpstreamError, domain.ErrIndexQuery.Error())
	case errors.Is(err, domain.ErrIndexWrite):
		writeError(w, http.StatusBadGateway, CodeIndexWriteFailed, domain.ErrIndexWrite.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
