// Package ingest runs the document ingestion pipeline: download, extract,
// chunk, embed, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/cache"
	"docqa/internal/chunker"
	"docqa/internal/embeddings"
	"docqa/internal/extract"
	"docqa/internal/storage"
	"docqa/internal/store"
)

var (
	// ErrEmptyDocument means extraction succeeded but produced no text.
	ErrEmptyDocument = errors.New("no text content extracted from document")
	// ErrNoChunks means chunking produced nothing from non-empty text.
	ErrNoChunks = errors.New("no chunks generated from document")
	// ErrAlreadyProcessing means another job holds the processing lease.
	ErrAlreadyProcessing = errors.New("document is already being processed")
)

// Request identifies one document to process.
type Request struct {
	DocumentID    uuid.UUID
	UserID        string
	StorageKey    string
	FileExtension string
}

// Result reports a completed ingestion.
type Result struct {
	Status          string
	DocumentID      uuid.UUID
	ChunksCount     int
	TotalCharacters int
}

// Options bound the chunking stage.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int
}

// Processor executes the ingestion pipeline for one document at a time per
// document identity; the store's status lease enforces the exclusion.
type Processor struct {
	log      *slog.Logger
	store    store.Store
	objects  storage.ObjectStore
	embedder embeddings.Embedder
	cache    cache.Cache
	opts     Options
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(log *slog.Logger, st store.Store, objects storage.ObjectStore, embedder embeddings.Embedder, c cache.Cache, opts Options) *Processor {
	return &Processor{
		log:      log,
		store:    st,
		objects:  objects,
		embedder: embedder,
		cache:    c,
		opts:     opts,
	}
}

// Process runs the full pipeline. Any failure after the lease is acquired
// marks the document failed with the captured error; the error is also
// returned to the caller. Once the lease is held the job runs to completion
// even if the triggering caller has gone away.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	log := p.log.With("document_id", req.DocumentID, "user_id", req.UserID)

	if _, err := p.store.GetDocument(ctx, req.DocumentID); err != nil {
		return Result{}, fmt.Errorf("document lookup: %w", err)
	}

	acquired, err := p.store.AcquireProcessing(ctx, req.DocumentID)
	if err != nil {
		return Result{}, fmt.Errorf("acquire processing lease: %w", err)
	}
	if !acquired {
		return Result{}, ErrAlreadyProcessing
	}

	// The lease is held: finish and record a terminal status regardless of
	// the caller's connection state.
	jobCtx := context.WithoutCancel(ctx)

	result, err := p.run(jobCtx, log, req)
	if err != nil {
		log.Error("ingestion failed", "err", err)
		if markErr := p.store.MarkFailed(jobCtx, req.DocumentID, err.Error()); markErr != nil {
			log.Error("failed to mark document failed", "err", markErr)
		}
		return Result{}, err
	}

	if err := p.store.MarkCompleted(jobCtx, req.DocumentID); err != nil {
		log.Error("failed to mark document completed", "err", err)
		return Result{}, err
	}
	log.Info("document processed", "chunks", result.ChunksCount, "characters", result.TotalCharacters)
	return result, nil
}

func (p *Processor) run(ctx context.Context, log *slog.Logger, req Request) (Result, error) {
	content, err := p.objects.Download(ctx, req.StorageKey)
	if err != nil {
		return Result{}, fmt.Errorf("download %s: %w", req.StorageKey, err)
	}

	text, err := extract.Text(content, req.FileExtension)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyDocument
	}

	chunks := chunker.ChunkText(text, chunker.Options{
		Size:      p.opts.ChunkSize,
		Overlap:   p.opts.ChunkOverlap,
		MaxChunks: p.opts.MaxChunks,
	})
	if len(chunks) == 0 {
		return Result{}, ErrNoChunks
	}
	log.Info("document chunked", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return Result{}, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	storeChunks := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = store.Chunk{
			DocumentID: req.DocumentID,
			UserID:     req.UserID,
			Index:      c.Index,
			Text:       c.Text,
			Size:       c.Size,
			Embedding:  vectors[i],
		}
	}
	if _, err := p.store.ReplaceChunks(ctx, req.DocumentID, storeChunks); err != nil {
		return Result{}, fmt.Errorf("persist chunks: %w", err)
	}

	// The chunk set changed; cached answers referencing it are stale.
	p.cache.InvalidateAnswers(ctx, req.UserID, req.DocumentID.String())

	return Result{
		Status:          "success",
		DocumentID:      req.DocumentID,
		ChunksCount:     len(chunks),
		TotalCharacters: len(text),
	}, nil
}
