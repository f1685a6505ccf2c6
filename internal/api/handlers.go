package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iasik/news-rag/internal/news"
)

// MessageResponse is returned by GET /, POST /store_news and POST /add.
type MessageResponse struct {
	Message string `json:"message"`
}

// RootResponse is the response body for GET /.
type RootResponse struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// QuestionRequest is the request body for /retrieve_news and /generate_answer.
type QuestionRequest struct {
	Question string `json:"question"`
}

// DocumentsResponse is the response body for POST /retrieve_news.
type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

// AnswerResponse is the response body for POST /generate_answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// SummaryResponse is the response body for POST /summarize_news.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// QueryResponse is the response body for GET /query. Every field holds one
// list per query text, and GET /query sends exactly one.
type QueryResponse struct {
	IDs       [][]string  `json:"ids"`
	Documents [][]string  `json:"documents"`
	Distances [][]float32 `json:"distances"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Version    string            `json:"version"`
}

// handleRoot handles GET / requests.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "News RAG API is running!",
		Version: s.version,
		Endpoints: []string{
			"POST /store_news",
			"POST /retrieve_news",
			"POST /generate_answer",
			"POST /summarize_news",
			"POST /add",
			"GET /query",
			"GET /health",
			"GET /metrics",
		},
	})
}

// handleStoreNews handles POST /store_news requests.
func (s *Server) handleStoreNews(w http.ResponseWriter, r *http.Request) {
	var req news.StoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := s.news.StoreNews(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// handleRetrieveNews handles POST /retrieve_news requests.
func (s *Server) handleRetrieveNews(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	docs, err := s.news.RetrieveNews(r.Context(), req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: docs})
}

// handleGenerateAnswer handles POST /generate_answer requests.
func (s *Server) handleGenerateAnswer(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	answer, err := s.news.GenerateAnswer(r.Context(), req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: answer})
}

// handleSummarizeNews handles POST /summarize_news requests.
func (s *Server) handleSummarizeNews(w http.ResponseWriter, r *http.Request) {
	var req news.SummarizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := s.news.SummarizeNews(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

// handleAdd handles POST /add?doc_id=&text= requests.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	msg, err := s.news.AddDocument(r.Context(), q.Get("doc_id"), q.Get("text"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// handleQuery handles GET /query?query_text= requests.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	res, err := s.news.QueryDocuments(r.Context(), r.URL.Query().Get("query_text"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		IDs:       [][]string{res.IDs},
		Documents: [][]string{res.Documents},
		Distances: [][]float32{res.Distances},
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	allHealthy := true

	check := func(name string, c HealthChecker) {
		if err := c.Health(ctx); err != nil {
			components[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			components[name] = "healthy"
		}
	}

	check("embedder", s.embedder)
	check("vectordb", s.vectorDB)
	if s.generator != nil {
		check("generator", s.generator)
	} else {
		components["generator"] = "disabled"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:     status,
		Components: components,
		Version:    s.version,
	})
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeBody parses a JSON request body, writing a 400 on failure and a 413
// when the body exceeds maxBodyBytes.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps the service error kinds to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, news.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, news.ErrGenerationDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, news.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
