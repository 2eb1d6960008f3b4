// Package ingest runs the document pipeline: extract text, split it into
// chunks, embed each chunk and index the result. Uploads return as soon as
// the document record exists; the heavy work happens on a bounded worker
// pool so a burst of uploads cannot exhaust the process.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/chunk"
	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/embed"
	"github.com/docuchat/docuchat/internal/extract"
	"github.com/docuchat/docuchat/internal/vecstore"
)

// ErrQueueFull reports that the ingestion queue could not accept another
// document before the request context expired.
var ErrQueueFull = errors.New("ingestion queue full")

// DocumentStore is what the pipeline needs from document persistence.
type DocumentStore interface {
	Create(ctx context.Context, ownerID, threadID, collectionKey, filename string) (document.Document, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (document.Document, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// VectorIndex is what the pipeline needs from the vector store.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, key, embedderModel string, dimension int) error
	IndexDocument(ctx context.Context, key string, documentID uuid.UUID, chunks []vecstore.IndexedChunk) error
	DeleteDocument(ctx context.Context, key string, documentID uuid.UUID) error
}

type task struct {
	doc    document.Document
	format extract.Format
	data   []byte
}

// Service accepts uploads and processes them in the background. Create it
// with New, call Start once, and Close during shutdown to drain the queue.
type Service struct {
	docs     DocumentStore
	index    VectorIndex
	embedder embed.Provider
	splitter *chunk.Splitter
	logger   *slog.Logger

	workers int
	tasks   chan task
	wg      sync.WaitGroup
}

// New creates a Service with the given number of workers and queue
// capacity. A nil logger falls back to slog.Default.
func New(docs DocumentStore, index VectorIndex, embedder embed.Provider, splitter *chunk.Splitter, workers, queueSize int, logger *slog.Logger) (*Service, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", queueSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		docs:     docs,
		index:    index,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
		workers:  workers,
		tasks:    make(chan task, queueSize),
	}, nil
}

// Start launches the worker pool. ctx bounds all background processing;
// cancelling it makes in-flight documents fail cleanly.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for t := range s.tasks {
				s.process(ctx, t)
			}
		}()
	}
}

// Close stops accepting work and waits for queued documents to finish.
func (s *Service) Close() {
	close(s.tasks)
	s.wg.Wait()
}

// Ingest records an upload and queues it for processing. The returned
// document is in the uploaded state; callers poll its status for the
// outcome. The file format is validated here so unsupported uploads fail
// synchronously.
func (s *Service) Ingest(ctx context.Context, ownerID, threadID, filename string, data []byte) (document.Document, error) {
	format, err := extract.Detect(filename)
	if err != nil {
		return document.Document{}, err
	}
	if len(data) == 0 {
		return document.Document{}, extract.ErrEmptyDocument
	}

	key := vecstore.Key(ownerID, threadID)
	doc, err := s.docs.Create(ctx, ownerID, threadID, key, filename)
	if err != nil {
		return document.Document{}, err
	}

	select {
	case s.tasks <- task{doc: doc, format: format, data: data}:
	case <-ctx.Done():
		s.fail(ctx, doc.ID, "ingestion queue full", ctx.Err())
		return document.Document{}, fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	}

	s.logger.Info("document queued",
		"document_id", doc.ID,
		"collection", key,
		"filename", filename,
		"bytes", len(data))
	return doc, nil
}

// Delete removes a document's chunks and its record. Safe to call while
// the document is still being processed; the indexing transaction notices
// the missing record and rolls back.
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	doc, err := s.docs.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.index.DeleteDocument(ctx, doc.CollectionKey, id); err != nil {
		return err
	}
	return s.docs.Delete(ctx, ownerID, id)
}

func (s *Service) process(ctx context.Context, t task) {
	// Status writes run detached from ctx: cancelling the pool during
	// shutdown must not leave the document stuck in a non-terminal state.
	if err := s.docs.MarkProcessing(context.WithoutCancel(ctx), t.doc.ID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			// Deleted while waiting in the queue.
			s.logger.Info("skipping deleted document", "document_id", t.doc.ID)
			return
		}
		s.fail(ctx, t.doc.ID, "internal error", err)
		return
	}

	text, err := extract.Text(t.format, t.data)
	if err != nil {
		s.fail(ctx, t.doc.ID, fmt.Sprintf("text extraction failed: %v", err), err)
		return
	}

	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		s.fail(ctx, t.doc.ID, "document contains no indexable text", extract.ErrEmptyDocument)
		return
	}

	if err := s.index.EnsureCollection(ctx, t.doc.CollectionKey, s.embedder.Model(), s.embedder.Dimension()); err != nil {
		s.fail(ctx, t.doc.ID, fmt.Sprintf("collection setup failed: %v", err), err)
		return
	}

	indexed := make([]vecstore.IndexedChunk, len(chunks))
	for i, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			s.fail(ctx, t.doc.ID, fmt.Sprintf("embedding chunk %d failed: %v", c.Index, err), err)
			return
		}
		indexed[i] = vecstore.IndexedChunk{
			Index:          c.Index,
			Content:        c.Text,
			SourceFilename: t.doc.OriginalFilename,
			Embedding:      vec,
		}
	}

	if err := s.index.IndexDocument(ctx, t.doc.CollectionKey, t.doc.ID, indexed); err != nil {
		if errors.Is(err, vecstore.ErrDocumentGone) {
			s.logger.Info("document deleted during ingestion, chunks discarded",
				"document_id", t.doc.ID)
			return
		}
		s.fail(ctx, t.doc.ID, fmt.Sprintf("indexing failed: %v", err), err)
		return
	}

	s.logger.Info("document ready",
		"document_id", t.doc.ID,
		"collection", t.doc.CollectionKey,
		"chunks", len(indexed))
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, reason string, cause error) {
	s.logger.Warn("document ingestion failed",
		"document_id", id,
		"reason", reason,
		"error", cause)
	if err := s.docs.MarkFailed(context.WithoutCancel(ctx), id, reason); err != nil {
		s.logger.Error("recording ingestion failure",
			"document_id", id,
			"error", err)
	}
}
