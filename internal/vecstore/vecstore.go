// Package vecstore stores chunk embeddings in PostgreSQL with pgvector and
// answers nearest-neighbour queries over them. Every row belongs to exactly
// one collection; a collection key names one owner's one thread, so queries
// can never cross thread boundaries.
package vecstore

import (
	"errors"
	"fmt"
	"strings"
)

// VectorDimension is the width of every stored embedding. The chunks table
// column is declared vector(768), so differently sized vectors are rejected
// before they reach the database.
const VectorDimension = 768

var (
	// ErrProviderMismatch reports an attempt to use a collection with a
	// different embedder model or dimension than it was created with.
	ErrProviderMismatch = errors.New("collection embedder mismatch")
	// ErrDocumentGone reports that a document disappeared between ingestion
	// starting and its chunks being committed.
	ErrDocumentGone = errors.New("document removed during ingestion")
	// ErrCollectionNotFound reports a collection key with no metadata row.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Key returns the collection key for one owner's one thread. Both IDs are
// percent-encoded before joining, so the separators cannot occur inside an
// encoded ID and distinct (owner, thread) pairs map to distinct keys.
func Key(ownerID, threadID string) string {
	return fmt.Sprintf("user_%s_thread_%s", escapeID(ownerID), escapeID(threadID))
}

// escapeID percent-encodes every byte outside [A-Za-z0-9.-]. Underscores
// in particular must be encoded: IDs arrive as free-form strings, and a
// raw underscore would let "a" + "b_thread_c" collide with
// "a_thread_b" + "c".
func escapeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// IndexedChunk is one chunk queued for insertion into a collection.
type IndexedChunk struct {
	Index          int
	Content        string
	SourceFilename string
	Embedding      []float32
}

// Match is one retrieved chunk with its similarity to the query vector.
// Score is cosine similarity in [-1, 1]; higher is closer.
type Match struct {
	ChunkID        string
	DocumentID     string
	ChunkIndex     int
	Content        string
	SourceFilename string
	Score          float32
}
