package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"docqa/internal/embeddings"
)

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

var (
	// ErrNotFound covers both a missing record and one owned by someone
	// else; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch rejects a vector whose width differs from the
	// store's fixed embedding column.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

type Document struct {
	ID          uuid.UUID
	UserID      string
	Filename    string
	Status      DocumentStatus
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Chunk is one bounded slice of a document's extracted text. Index is
// zero-based and unique per document; Embedding is set once at creation.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     string
	Index      int
	Text       string
	Size       int
	Embedding  embeddings.Vector
	PageNumber *int
	CreatedAt  time.Time
}

// SearchResult is one ranked chunk from a similarity query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// SearchParams scopes a similarity query. UserID is mandatory: it is the
// access-control filter. DocumentIDs, when non-empty, restricts candidates
// before ranking.
type SearchParams struct {
	UserID      string
	Vector      embeddings.Vector
	TopK        int
	DocumentIDs []uuid.UUID
	Threshold   float64
}

// Store defines the persistence contract for documents and chunks.
type Store interface {
	CreateDocument(ctx context.Context, userID, filename string) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)

	// AcquireProcessing is the status-based lease: it transitions
	// uploaded/failed/completed to processing and reports whether this
	// caller won. A document already processing cannot be acquired.
	AcquireProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error

	// ReplaceChunks atomically swaps the document's chunk set: prior chunks
	// are deleted and the new set inserted in one transaction, so a reader
	// never observes a mixed set or duplicate indices.
	ReplaceChunks(ctx context.Context, docID uuid.UUID, chunks []Chunk) ([]Chunk, error)
	// UpsertChunk inserts a chunk, idempotent by chunk identity.
	UpsertChunk(ctx context.Context, chunk Chunk) error
	ListChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error)

	// Search ranks the owner's chunks by cosine similarity, limits to
	// top-k, then discards results below the threshold (in that order).
	Search(ctx context.Context, params SearchParams) ([]SearchResult, error)

	Close() error
}
