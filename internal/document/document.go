// Package document persists document records and their lifecycle state.
// Records track where an upload stands in the ingestion pipeline; the chunk
// vectors themselves live in the vector store.
package document

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the ingestion lifecycle state of a document.
type Status string

// Lifecycle states. A document moves uploaded -> processing -> ready, or to
// failed from any earlier state. ready and failed are terminal.
const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// ErrNotFound reports a document id that does not exist or is not visible
// to the requesting owner.
var ErrNotFound = errors.New("document not found")

// Document is one uploaded file and its ingestion state.
type Document struct {
	ID               uuid.UUID
	OwnerID          string
	ThreadID         string
	CollectionKey    string
	OriginalFilename string
	Status           Status
	ErrorReason      string
	ChunkCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
