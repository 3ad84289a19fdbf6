package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/indexer"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/storage"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/vector"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response    string                   `json:"response"`
	Intent      models.Intent            `json:"intent"`
	ContextUsed bool                     `json:"context_used"`
	SessionID   string                   `json:"session_id"`
	Sources     []*models.RetrievedChunk `json:"sources"`
}

// IngestRequest is the body accepted by POST /api/ingest.
type IngestRequest struct {
	Texts     []string                 `json:"texts"`
	Metadatas []map[string]interface{} `json:"metadatas,omitempty"`
}

// IngestResponse is the body returned by POST /api/ingest.
type IngestResponse struct {
	Success     bool     `json:"success"`
	DocumentIDs []string `json:"document_ids"`
	Message     string   `json:"message"`
}

// HistoryResponse is the body returned by GET /api/history/{session_id}.
type HistoryResponse struct {
	SessionID     string                     `json:"session_id"`
	Conversations []*models.ConversationTurn `json:"conversations"`
	Count         int                        `json:"count"`
}

// StatusResponse is the body returned by GET /api/status.
type StatusResponse struct {
	Status         string                 `json:"status"`
	Version        string                 `json:"version"`
	Chunks         int64                  `json:"chunks"`
	DiskUsageBytes int64                  `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("chat request", zap.String("session_id", req.SessionID), zap.String("query", utils.Truncate(req.Query, 80)))

	result, err := s.chat.Run(r.Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("chat failed", zap.String("session_id", req.SessionID), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	turn := models.NewConversationTurn(req.Query, result)
	if err := s.history.Append(r.Context(), turn); err != nil {
		s.logger.Warn("failed to save conversation turn", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, NewChatResponse(result))
}

// NewChatResponse converts an orchestration result to its API form.
func NewChatResponse(result *models.ChatResult) *ChatResponse {
	sources := result.Context
	if sources == nil {
		sources = []*models.RetrievedChunk{}
	}
	return &ChatResponse{
		Response:    result.Answer,
		Intent:      result.Intent,
		ContextUsed: result.ContextUsed(),
		SessionID:   result.SessionID,
		Sources:     sources,
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "texts cannot be empty")
		return
	}
	if len(req.Metadatas) > len(req.Texts) {
		s.respondError(w, http.StatusBadRequest, "more metadatas than texts")
		return
	}

	docs := make([]*models.DocumentInput, len(req.Texts))
	for i, text := range req.Texts {
		var meta map[string]interface{}
		if i < len(req.Metadatas) {
			meta = req.Metadatas[i]
		}
		if meta == nil {
			meta = map[string]interface{}{}
		}
		docs[i] = &models.DocumentInput{Content: text, Metadata: meta}
	}
	s.logger.Debug("ingest request", zap.Int("documents", len(docs)))

	ids, err := s.ingest.Ingest(r.Context(), docs)
	if ids == nil {
		ids = []string{}
	}
	if err != nil {
		s.logger.Error("ingestion failed", zap.Int("stored_chunks", len(ids)), zap.Error(err))
		status := http.StatusBadGateway
		if apperr.Is(err, apperr.ErrConfiguration) {
			status = http.StatusInternalServerError
		}
		s.respondJSON(w, status, IngestResponse{
			Success:     false,
			DocumentIDs: ids,
			Message:     ingestFailureMessage(len(docs), err),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, IngestResponse{
		Success:     true,
		DocumentIDs: ids,
		Message:     fmt.Sprintf("Successfully ingested %d documents", len(docs)),
	})
}

func ingestFailureMessage(total int, err error) string {
	var ingestErr *indexer.IngestError
	if errors.As(err, &ingestErr) {
		return fmt.Sprintf("ingested %d of %d documents: %v", ingestErr.Index, total, ingestErr.Err)
	}
	return err.Error()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	limit := s.config.History.DefaultLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.history.List(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Error("history lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		turns = []*models.ConversationTurn{}
	}
	s.respondJSON(w, http.StatusOK, HistoryResponse{
		SessionID:     sessionID,
		Conversations: turns,
		Count:         len(turns),
	})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": uuid.New().String()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := BuildStatus(r.Context(), s.store, s.config, s.version)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// BuildStatus reports the store size and the effective configuration.
func BuildStatus(ctx context.Context, store vector.Store, cfg *config.Config, version string) (*StatusResponse, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatusResponse{
		Status:  "ok",
		Version: version,
		Chunks:  count,
		Config: map[string]interface{}{
			"store_type":           storeType(cfg.Store.Type),
			"embedding_model":      cfg.Embedding.Model,
			"embedding_dimensions": store.Dimensions(),
			"chat_model":           cfg.LLM.ChatModel,
			"chunk_size":           cfg.Chunking.ChunkSize,
			"chunk_overlap":        cfg.Chunking.OverlapOrDefault(),
			"top_k":                cfg.Retrieval.TopK,
			"history_type":         cfg.History.Type,
		},
	}
	if storeType(cfg.Store.Type) == string(vector.StoreTypeSQLite) {
		resp.Config["database_path"] = cfg.Store.DatabasePath
		if size, err := storage.DiskUsageBytes(cfg.Store.DatabasePath); err == nil {
			resp.DiskUsageBytes = size
		}
	}
	return resp, nil
}

func storeType(t string) string {
	if t == "" {
		return string(vector.StoreTypeSQLite)
	}
	return t
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": serviceName,
		"version": s.version,
	})
}

// statusFor maps an error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case apperr.Is(err, apperr.ErrConfiguration):
		return http.StatusInternalServerError
	case apperr.Is(err, apperr.ErrGenerationFailed):
		return http.StatusBadGateway
	case apperr.Is(err, apperr.ErrEmbeddingUnavailable), apperr.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
