package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store uses. Interfaces are defined
// by the consumer, so tests can substitute a transaction or a fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists document records in PostgreSQL. Safe for concurrent use.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Create inserts a new document record in the uploaded state and returns it.
func (s *Store) Create(ctx context.Context, ownerID, threadID, collectionKey, filename string) (Document, error) {
	doc := Document{
		OwnerID:          ownerID,
		ThreadID:         threadID,
		CollectionKey:    collectionKey,
		OriginalFilename: filename,
		Status:           StatusUploaded,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO documents (owner_id, thread_id, collection_key, original_filename, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		ownerID, threadID, collectionKey, filename, StatusUploaded,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("creating document record: %w", err)
	}

	s.logger.Debug("document record created",
		"document_id", doc.ID,
		"collection", collectionKey,
		"filename", filename)
	return doc, nil
}

const documentColumns = `
	id, owner_id, thread_id, collection_key, original_filename,
	status, COALESCE(error_reason, ''), chunk_count, created_at, updated_at`

// Get returns the document with the given id, scoped to its owner.
func (s *Store) Get(ctx context.Context, ownerID string, id uuid.UUID) (Document, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+documentColumns+`
		FROM documents
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// ListByThread returns all documents an owner uploaded to a thread, newest
// first.
func (s *Store) ListByThread(ctx context.Context, ownerID, threadID string) ([]Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+documentColumns+`
		FROM documents
		WHERE owner_id = $1 AND thread_id = $2
		ORDER BY created_at DESC, id DESC`,
		ownerID, threadID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

// MarkProcessing moves a document from uploaded to processing. Documents
// already past uploaded are left untouched and reported as ErrNotFound.
func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, StatusProcessing, StatusUploaded)
	if err != nil {
		return fmt.Errorf("marking document %s processing: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed moves a document to the failed state and records the reason.
// Failing an already-deleted document is not an error.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_reason = $3, chunk_count = 0, updated_at = now()
		WHERE id = $1`,
		id, StatusFailed, reason)
	if err != nil {
		return fmt.Errorf("marking document %s failed: %w", id, err)
	}
	return nil
}

// Delete removes a document record. Chunk rows go with it via the foreign
// key cascade.
func (s *Store) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM documents
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("document deleted", "document_id", id)
	return nil
}

// CountReady returns the number of ready documents in a collection.
func (s *Store) CountReady(ctx context.Context, collectionKey string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM documents
		WHERE collection_key = $1 AND status = $2`,
		collectionKey, StatusReady,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting ready documents: %w", err)
	}
	return count, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.ThreadID, &doc.CollectionKey,
		&doc.OriginalFilename, &doc.Status, &doc.ErrorReason,
		&doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}
