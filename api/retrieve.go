package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/docuchat/docuchat/internal/retrieve"
)

// Retriever is what the retrieve endpoint needs from retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, ownerID, threadID, question string) ([]retrieve.Result, error)
}

// RetrieveHandler exposes raw retrieval, mainly for debugging what the
// composer would see for a given question.
type RetrieveHandler struct {
	retriever Retriever
	logger    *slog.Logger
}

// NewRetrieveHandler creates a retrieve handler.
func NewRetrieveHandler(retriever Retriever, logger *slog.Logger) *RetrieveHandler {
	return &RetrieveHandler{retriever: retriever, logger: logger}
}

// RegisterRoutes registers the retrieve route.
func (h *RetrieveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/retrieve", h.retrieve)
}

type retrieveRequest struct {
	OwnerID  string `json:"owner_id"`
	ThreadID string `json:"thread_id"`
	Question string `json:"question"`
}

type retrieveMatch struct {
	Text     string  `json:"text"`
	Filename string  `json:"filename"`
	Score    float32 `json:"score"`
}

func (h *RetrieveHandler) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OwnerID == "" || req.ThreadID == "" || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id, thread_id and question are required")
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), req.OwnerID, req.ThreadID, req.Question)
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "retrieval failed")
		return
	}

	matches := make([]retrieveMatch, len(results))
	for i, res := range results {
		matches[i] = retrieveMatch{
			Text:     res.ChunkText,
			Filename: res.SourceFilename,
			Score:    res.Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
