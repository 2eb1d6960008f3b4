package vecstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Store persists and queries chunk embeddings. It needs the pool itself
// rather than a narrower interface because indexing runs in a transaction.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// EnsureCollection creates the collection metadata row if it does not exist
// and verifies that an existing collection was built with the same embedder
// model and dimension.
func (s *Store) EnsureCollection(ctx context.Context, key, embedderModel string, dimension int) error {
	if dimension != VectorDimension {
		return fmt.Errorf("%w: dimension %d, schema requires %d",
			ErrProviderMismatch, dimension, VectorDimension)
	}

	var existingModel string
	var existingDim int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO collections (key, embedder_model, dimension)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key
		RETURNING embedder_model, dimension`,
		key, embedderModel, dimension,
	).Scan(&existingModel, &existingDim)
	if err != nil {
		return fmt.Errorf("ensuring collection %s: %w", key, err)
	}

	if existingModel != embedderModel || existingDim != dimension {
		return fmt.Errorf("%w: collection %s built with %s/%d, got %s/%d",
			ErrProviderMismatch, key, existingModel, existingDim, embedderModel, dimension)
	}
	return nil
}

// CollectionModel returns the embedder model and dimension a collection was
// created with.
func (s *Store) CollectionModel(ctx context.Context, key string) (string, int, error) {
	var model string
	var dim int
	err := s.pool.QueryRow(ctx, `
		SELECT embedder_model, dimension FROM collections WHERE key = $1`,
		key,
	).Scan(&model, &dim)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, ErrCollectionNotFound
		}
		return "", 0, fmt.Errorf("loading collection %s: %w", key, err)
	}
	return model, dim, nil
}

// IndexDocument inserts a document's chunks and flips the document to ready
// in one transaction. Either every chunk lands and the document becomes
// ready, or nothing is written. If the document was deleted or failed while
// its chunks were being embedded, the transaction rolls back and
// ErrDocumentGone is returned.
func (s *Store) IndexDocument(ctx context.Context, key string, documentID uuid.UUID, chunks []IndexedChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("indexing document %s: no chunks", documentID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		if len(c.Embedding) != VectorDimension {
			return fmt.Errorf("chunk %d of document %s: embedding dimension %d, want %d",
				c.Index, documentID, len(c.Embedding), VectorDimension)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO chunks (collection_key, document_id, chunk_index, content, source_filename, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			key, documentID, c.Index, c.Content, c.SourceFilename,
			pgvector.NewVector(c.Embedding))
		if err != nil {
			// A foreign key violation means the document row vanished
			// after ingestion started.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return fmt.Errorf("%w: %s", ErrDocumentGone, documentID)
			}
			return fmt.Errorf("inserting chunk %d of document %s: %w", c.Index, documentID, err)
		}
	}

	// The ready flip is conditional on the document still being in
	// processing. A concurrent delete or failure leaves zero rows, which
	// rolls back every chunk inserted above.
	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET status = 'ready', chunk_count = $2, error_reason = NULL, updated_at = now()
		WHERE id = $1 AND status = 'processing'`,
		documentID, len(chunks))
	if err != nil {
		return fmt.Errorf("marking document %s ready: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentGone, documentID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing index transaction: %w", err)
	}

	s.logger.Debug("document indexed",
		"collection", key,
		"document_id", documentID,
		"chunks", len(chunks))
	return nil
}

// Query returns the topK chunks in a collection closest to the query
// vector, restricted to ready documents. Ties are broken by chunk index and
// then document creation time, so results are stable across runs.
func (s *Store) Query(ctx context.Context, key string, vector []float32, topK int) ([]Match, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("query vector dimension %d, want %d", len(vector), VectorDimension)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.source_filename,
		       1 - (c.embedding <=> $2) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.collection_key = $1 AND d.status = 'ready'
		ORDER BY c.embedding <=> $2 ASC, c.chunk_index ASC, d.created_at ASC
		LIMIT $3`,
		key, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", key, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var chunkID, docID uuid.UUID
		var similarity float64
		if err := rows.Scan(&chunkID, &docID, &m.ChunkIndex, &m.Content, &m.SourceFilename, &similarity); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		m.ChunkID = chunkID.String()
		m.DocumentID = docID.String()
		m.Score = float32(similarity)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match rows: %w", err)
	}
	return matches, nil
}

// DeleteDocument removes every chunk a document contributed to a
// collection.
func (s *Store) DeleteDocument(ctx context.Context, key string, documentID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM chunks
		WHERE collection_key = $1 AND document_id = $2`,
		key, documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks of document %s: %w", documentID, err)
	}
	return nil
}
