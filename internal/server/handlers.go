package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/passage/internal/answer"
	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query.Query = strings.TrimSpace(query.Query)
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("k", query.K))

	start := time.Now()
	hits, err := s.searcher.Search(r.Context(), query.Query, query.K)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	if hits == nil {
		hits = []models.Hit{}
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.Bool("stream", req.Stream))

	if !req.Stream {
		resp, err := s.asker.Ask(r.Context(), req)
		if err != nil {
			s.respondFailure(w, "ask", err)
			return
		}
		s.respondJSON(w, http.StatusOK, resp)
		return
	}

	pending, err := s.asker.AskStream(r.Context(), req)
	if err != nil {
		s.respondFailure(w, "ask", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if pending.Refused {
		_, _ = io.WriteString(w, answer.RefusalMessage+"\n")
		return
	}
	defer pending.Stream.Close()

	rc := http.NewResponseController(w)
	for {
		frag, err := pending.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("answer stream interrupted", zap.Error(err))
			return
		}
		if _, err := io.WriteString(w, frag); err != nil {
			return
		}
		_ = rc.Flush()
	}
	_, _ = io.WriteString(w, "\n\nSources used:\n"+answer.FormatSources(pending.Sources))
	_ = rc.Flush()
}

// chunkResponse is a chunk record plus its vector store position as recorded
// by the catalog. Position is omitted when no catalog is configured.
type chunkResponse struct {
	models.Chunk
	Position *int `json:"position,omitempty"`
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunk, ok := s.index.Lookup(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	resp := chunkResponse{Chunk: chunk}
	if s.catalog != nil {
		_, pos, err := s.catalog.GetChunk(r.Context(), id)
		switch {
		case err == nil:
			resp.Position = &pos
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Warn("chunk missing from catalog", zap.String("id", id))
		default:
			s.respondFailure(w, "get chunk", err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	sources, err := s.catalog.ListSources(r.Context())
	if err != nil {
		s.respondFailure(w, "list sources", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources, "total": len(sources)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := CollectStatus(r.Context(), s.index, s.catalog, s.diskPaths...)
	if err != nil {
		s.respondFailure(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// statusCode maps an error to the HTTP status returned to clients.
func statusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, index.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	s.respondError(w, code, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
