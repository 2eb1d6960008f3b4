package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/extract"
	"github.com/docuchat/docuchat/internal/ingest"
)

const (
	// MaxUploadBytes caps a single document upload.
	MaxUploadBytes = 50 << 20
	// MinUploadBytes rejects uploads too small to hold any real content.
	MinUploadBytes = 10
)

// Ingester is what the upload endpoints need from the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, ownerID, threadID, filename string, data []byte) (document.Document, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// DocumentReader is what the read endpoints need from document storage.
type DocumentReader interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (document.Document, error)
	ListByThread(ctx context.Context, ownerID, threadID string) ([]document.Document, error)
}

// DocumentsHandler serves document upload, listing and deletion.
type DocumentsHandler struct {
	ingester Ingester
	docs     DocumentReader
	logger   *slog.Logger
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(ingester Ingester, docs DocumentReader, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{ingester: ingester, docs: docs, logger: logger}
}

// RegisterRoutes registers the document routes.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.upload)
	mux.HandleFunc("GET /api/documents", h.list)
	mux.HandleFunc("GET /api/documents/{id}", h.get)
	mux.HandleFunc("DELETE /api/documents/{id}", h.remove)
}

// documentResponse is the JSON shape of one document record.
type documentResponse struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	Filename    string    `json:"filename"`
	Status      string    `json:"status"`
	ErrorReason string    `json:"error_reason,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDocumentResponse(doc document.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID.String(),
		ThreadID:    doc.ThreadID,
		Filename:    doc.OriginalFilename,
		Status:      string(doc.Status),
		ErrorReason: doc.ErrorReason,
		ChunkCount:  doc.ChunkCount,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func (h *DocumentsHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form data")
		return
	}

	ownerID := r.FormValue("owner_id")
	threadID := r.FormValue("thread_id")
	if ownerID == "" || threadID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id and thread_id are required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_format",
			fmt.Sprintf("unsupported file type %q", header.Filename))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "reading uploaded file failed")
		return
	}
	if len(data) < MinUploadBytes {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("file too small: %d bytes", len(data)))
		return
	}

	doc, err := h.ingester.Ingest(r.Context(), ownerID, threadID, header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			writeError(w, http.StatusUnsupportedMediaType, "unsupported_format", err.Error())
		case errors.Is(err, ingest.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "busy", "ingestion queue full, retry later")
		default:
			h.logger.Error("document upload failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "upload failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

func (h *DocumentsHandler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	threadID := r.URL.Query().Get("thread_id")
	if ownerID == "" || threadID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id and thread_id are required")
		return
	}

	docs, err := h.docs.ListByThread(r.Context(), ownerID, threadID)
	if err != nil {
		h.logger.Error("listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "listing documents failed")
		return
	}

	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentResponse(doc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *DocumentsHandler) get(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id is required")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid document id")
		return
	}

	doc, err := h.docs.Get(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("getting document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "getting document failed")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentsHandler) remove(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner_id is required")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid document id")
		return
	}

	if err := h.ingester.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("deleting document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "deleting document failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
