package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/metrics"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/pipeline"
	"github.com/hyperjump/manabu/internal/retrieval"
	"github.com/hyperjump/manabu/internal/storage"
)

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Phase     string `json:"phase,omitempty"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Phase          string                `json:"phase"`
	Error          string                `json:"error,omitempty"`
	Files          int                   `json:"files"`
	Chunks         int                   `json:"chunks"`
	Skipped        []indexer.SkippedFile `json:"skipped"`
	IndexType      string                `json:"index_type"`
	IndexSize      int                   `json:"index_size"`
	Model          string                `json:"model"`
	Dimensions     int                   `json:"dimensions"`
	CorpusBytes    int64                 `json:"corpus_bytes"`
	DatabaseBytes  int64                 `json:"database_bytes"`
	BuildSeconds   float64               `json:"build_seconds"`
	MinScore       float64               `json:"min_score"`
	TopK           int                   `json:"top_k"`
	GenerationMode string                `json:"generation"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	retriever, ok := s.retriever(w)
	if !ok {
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	resp, err := retriever.Respond(r.Context(), &req)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	retriever, ok := s.retriever(w)
	if !ok {
		return
	}
	s.logger.Debug("ask request", zap.String("query", req.Query))
	resp, err := s.asker.Ask(r.Context(), retriever, &req)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// retriever returns the serving Retriever or writes 503 while the build runs and 500 if it
// failed.
func (s *Server) retriever(w http.ResponseWriter) (*retrieval.Retriever, bool) {
	r, err := s.pipeline.Retriever()
	if err == nil {
		return r, true
	}
	metrics.RecordRetrieval(metrics.OutcomeUnavailable, 0)
	if errors.Is(err, models.ErrNotReady) {
		w.Header().Set("Retry-After", "5")
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Phase: string(pipeline.PhaseBuilding)})
		return nil, false
	}
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Phase: string(pipeline.PhaseFailed)})
	return nil, false
}

// respondQueryError maps query-time errors to status codes.
func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		embErr        *models.EmbeddingError
		genErr        *models.GenerationError
	)
	switch {
	case errors.As(err, &validationErr):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &embErr):
		s.logger.Error("query embedding failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Retryable: embErr.Retryable})
	case errors.As(err, &genErr):
		s.logger.Error("answer generation failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Retryable: true})
	default:
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	idx := s.pipeline.Index()
	resp := StatusResponse{
		Phase:          string(s.pipeline.Phase()),
		Skipped:        []indexer.SkippedFile{},
		IndexType:      idx.Type(),
		IndexSize:      idx.Size(),
		Model:          s.config.Embedding.Model,
		Dimensions:     idx.Dimensions(),
		MinScore:       s.config.Retrieval.MinScore,
		TopK:           s.config.Retrieval.TopK,
		GenerationMode: s.config.Generation.Provider,
	}
	if err := s.pipeline.Err(); err != nil {
		resp.Error = err.Error()
	}
	if report := s.pipeline.Report(); report != nil {
		resp.Files = report.Files
		resp.Chunks = report.Chunks
		resp.Model = report.Model
		resp.BuildSeconds = report.Duration.Seconds()
		if report.Skipped != nil {
			resp.Skipped = report.Skipped
		}
		for _, src := range report.Sources {
			resp.CorpusBytes += src.SizeBytes
		}
	}
	if n, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
		resp.DatabaseBytes = n
	} else {
		s.logger.Warn("status: database size unavailable", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.retriever(w); !ok {
		return
	}
	sources, err := s.pipeline.Store().ListSources(r.Context())
	if err != nil {
		s.logger.Error("list sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*models.SourceDocument{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources, "total": len(sources)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "phase": string(s.pipeline.Phase())})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
