package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/docuchat/docuchat/internal/answer"
)

// Composer is what the chat endpoint needs from answer composition.
type Composer interface {
	Compose(ctx context.Context, ownerID, threadID, question string) (answer.Answer, error)
}

// ChatHandler serves grounded question answering.
type ChatHandler struct {
	composer Composer
	logger   *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(composer Composer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{composer: composer, logger: logger}
}

// RegisterRoutes registers the chat route.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

type chatRequest struct {
	OwnerID  string `json:"owner_id"`
	ThreadID string `json:"thread_id"`
	Question string `json:"question"`
}

type chatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	State   string   `json:"state"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OwnerID == "" || req.ThreadID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id and thread_id are required")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	ans, err := h.composer.Compose(r.Context(), req.OwnerID, req.ThreadID, req.Question)
	if err != nil {
		if errors.Is(err, answer.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "retrieval is temporarily unavailable")
			return
		}
		h.logger.Error("composing answer failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "answering failed")
		return
	}

	sources := ans.CitedSources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Answer:  ans.Text,
		Sources: sources,
		State:   string(ans.State),
	})
}
