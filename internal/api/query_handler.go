package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dealscope/internal/pipeline"
	"dealscope/pkg/logger"
)

// QueryHandler exposes the analysis pipeline over HTTP.
type QueryHandler struct {
	pipeline       *pipeline.Pipeline
	requestTimeout time.Duration
	log            *logger.Logger
}

// NewQueryHandler creates the handler. requestTimeout bounds one full
// pipeline run.
func NewQueryHandler(p *pipeline.Pipeline, requestTimeout time.Duration, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline:       p,
		requestTimeout: requestTimeout,
		log:            log,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Report string `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles POST /query with a JSON body {"query": "..."} and
// responds with the rendered Markdown report.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	report, err := h.pipeline.Run(ctx, req.Query)
	if err != nil {
		h.log.Errorw("Pipeline run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Report: report})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
