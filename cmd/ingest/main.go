package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/app"
	"docqa/internal/extract"
	"docqa/internal/httputil"
	"docqa/internal/ingest"
	"docqa/internal/queue"
	"docqa/internal/storage"
	"docqa/internal/store"
)

type processRequest struct {
	DocumentID    string `json:"document_id" validate:"required,uuid4"`
	UserID        string `json:"user_id" validate:"required"`
	StorageKey    string `json:"storage_key" validate:"required"`
	FileExtension string `json:"file_extension" validate:"required"`
}

type processResponse struct {
	Status          string `json:"status"`
	DocumentID      string `json:"document_id"`
	ChunksCount     int    `json:"chunks_count"`
	TotalCharacters int    `json:"total_characters"`
}

type createDocumentRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

type createDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type chunkView struct {
	ChunkID    string `json:"chunk_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Size       int    `json:"size"`
	PageNumber *int   `json:"page_number,omitempty"`
}

type listChunksResponse struct {
	DocumentID  string      `json:"document_id"`
	Status      string      `json:"status"`
	ChunksCount int         `json:"chunks_count"`
	Chunks      []chunkView `json:"chunks"`
}

// processor is what the HTTP handler and queue worker need from the pipeline.
type processor interface {
	Process(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("ingest service starting")

	p := ingest.NewProcessor(deps.Log, deps.Store, deps.Objects, deps.Embedder, deps.Cache, ingest.Options{
		ChunkSize:    deps.Config.ChunkSize,
		ChunkOverlap: deps.Config.ChunkOverlap,
		MaxChunks:    deps.Config.MaxChunks,
	})

	r := httputil.NewRouter(deps.Log)
	r.Use(httputil.Metrics(deps.Metrics))
	r.Post("/documents", createDocumentHandler(deps.Log, deps.Store))
	r.Get("/documents/{id}/chunks", listChunksHandler(deps.Log, deps.Store))
	r.Post("/process/document", processHandler(deps.Log, p))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", deps.Metrics.Handler())

	g, ctx := errgroup.WithContext(context.Background())

	// Upload services enqueue the same payload the HTTP endpoint accepts.
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeProcess, func(ctx context.Context, task queue.Task) error {
			var payload processRequest
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			req, err := payload.toIngestRequest()
			if err != nil {
				return err
			}
			_, err = p.Process(ctx, req)
			if errors.Is(err, ingest.ErrAlreadyProcessing) {
				// Another job holds the lease; retrying would not help.
				deps.Log.Warn("skipping task, document already processing", "document_id", payload.DocumentID)
				return nil
			}
			return err
		})
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", deps.Config.Port)
		deps.Log.Info("ingest service listening", "addr", addr)
		return http.ListenAndServe(addr, r)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("ingest service stopped", "err", err)
	}
}

func (r processRequest) toIngestRequest() (ingest.Request, error) {
	docID, err := uuid.Parse(r.DocumentID)
	if err != nil {
		return ingest.Request{}, fmt.Errorf("invalid document_id: %w", err)
	}
	return ingest.Request{
		DocumentID:    docID,
		UserID:        r.UserID,
		StorageKey:    r.StorageKey,
		FileExtension: r.FileExtension,
	}, nil
}

func processHandler(log *slog.Logger, p processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(log, w, err)
			return
		}

		ireq, err := req.toIngestRequest()
		if err != nil {
			httputil.Fail(log, w, "invalid document_id", err, http.StatusBadRequest)
			return
		}

		result, err := p.Process(r.Context(), ireq)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			httputil.Fail(log, w, "document not found", err, http.StatusNotFound)
			return
		case errors.Is(err, storage.ErrObjectNotFound):
			httputil.Fail(log, w, "document file not found", err, http.StatusNotFound)
			return
		case errors.Is(err, ingest.ErrAlreadyProcessing):
			httputil.Fail(log, w, "document is already being processed", err, http.StatusConflict)
			return
		case errors.Is(err, extract.ErrUnsupportedFormat),
			errors.Is(err, ingest.ErrEmptyDocument),
			errors.Is(err, ingest.ErrNoChunks):
			httputil.Fail(log, w, err.Error(), err, http.StatusBadRequest)
			return
		default:
			// Upstream detail stays in the logs; the caller gets a generic failure.
			httputil.Fail(log, w, "document processing failed", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, processResponse{
			Status:          result.Status,
			DocumentID:      result.DocumentID.String(),
			ChunksCount:     result.ChunksCount,
			TotalCharacters: result.TotalCharacters,
		})
	}
}

// createDocumentHandler registers a document record ahead of its upload, so
// the processing endpoint has a row to lease.
func createDocumentHandler(log *slog.Logger, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(log, w, err)
			return
		}

		doc, err := st.CreateDocument(r.Context(), req.UserID, req.Filename)
		if err != nil {
			httputil.Fail(log, w, "failed to register document", err, http.StatusInternalServerError)
			return
		}
		log.Info("document registered", "document_id", doc.ID, "user_id", req.UserID)

		httputil.WriteJSON(w, http.StatusCreated, createDocumentResponse{
			DocumentID: doc.ID.String(),
			Status:     string(doc.Status),
		})
	}
}

// listChunksHandler exposes a document's stored chunks for inspection.
func listChunksHandler(log *slog.Logger, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}

		doc, err := st.GetDocument(r.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			httputil.Fail(log, w, "document not found", err, http.StatusNotFound)
			return
		default:
			httputil.Fail(log, w, "failed to load document", err, http.StatusInternalServerError)
			return
		}

		chunks, err := st.ListChunks(r.Context(), id)
		if err != nil {
			httputil.Fail(log, w, "failed to list chunks", err, http.StatusInternalServerError)
			return
		}

		resp := listChunksResponse{
			DocumentID:  doc.ID.String(),
			Status:      string(doc.Status),
			ChunksCount: len(chunks),
			Chunks:      make([]chunkView, len(chunks)),
		}
		for i, c := range chunks {
			resp.Chunks[i] = chunkView{
				ChunkID:    c.ID.String(),
				Index:      c.Index,
				Text:       c.Text,
				Size:       c.Size,
				PageNumber: c.PageNumber,
			}
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}
