// Package api exposes the document pipeline over HTTP.
//
// Endpoints:
//
//	GET    /health               liveness probe
//	GET    /ready                readiness probe (pings the database)
//	POST   /api/documents        multipart upload into a thread
//	GET    /api/documents        list a thread's documents
//	GET    /api/documents/{id}   one document's status
//	DELETE /api/documents/{id}   remove a document and its chunks
//	POST   /api/chat             ask a question within a thread
//	POST   /api/retrieve         raw retrieval, no answer generation
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: logging and panic recovery
//   - response.go: JSON response helpers
//   - health.go: probes
//   - documents.go: upload, list, get, delete
//   - chat.go: grounded question answering
//   - retrieve.go: raw chunk retrieval
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default bind address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is generous because uploads can be tens of megabytes.
	ReadTimeout = 2 * time.Minute

	// WriteTimeout covers answer generation latency.
	WriteTimeout = 2 * time.Minute

	// IdleTimeout for keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server routes HTTP requests to the pipeline.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	health    *HealthHandler
	documents *DocumentsHandler
	chat      *ChatHandler
	retrieve  *RetrieveHandler
}

// NewServer creates a server with all routes registered. A nil logger
// falls back to slog.Default.
func NewServer(pinger Pinger, ingester Ingester, docs DocumentReader, composer Composer, retriever Retriever, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:       mux,
		logger:    logger,
		health:    NewHealthHandler(pinger, logger),
		documents: NewDocumentsHandler(ingester, docs, logger),
		chat:      NewChatHandler(composer, logger),
		retrieve:  NewRetrieveHandler(retriever, logger),
	}

	s.health.RegisterRoutes(mux)
	s.documents.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.retrieve.RegisterRoutes(mux)

	return s
}

// Handler returns the full handler with middleware applied. Middleware
// order: recovery outermost, then logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
