package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docqa/internal/ingest"
	"docqa/internal/store"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ingest.Result), args.Error(1)
}

func validBody(docID uuid.UUID) string {
	return `{
		"document_id": "` + docID.String() + `",
		"user_id": "user-1",
		"storage_key": "user-1/doc.pdf",
		"file_extension": "pdf"
	}`
}

func TestProcessHandler(t *testing.T) {
	validDocID := uuid.New()

	tests := []struct {
		name          string
		requestBody   string
		setup         func(*mockProcessor)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:        "successful processing",
			requestBody: validBody(validDocID),
			setup: func(p *mockProcessor) {
				p.On("Process", mock.Anything, mock.MatchedBy(func(req ingest.Request) bool {
					return req.DocumentID == validDocID && req.UserID == "user-1" &&
						req.StorageKey == "user-1/doc.pdf" && req.FileExtension == "pdf"
				})).Return(ingest.Result{
					Status:          "success",
					DocumentID:      validDocID,
					ChunksCount:     4,
					TotalCharacters: 3200,
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["status"] != "success" {
					t.Errorf("status = %v", result["status"])
				}
				if result["document_id"] != validDocID.String() {
					t.Errorf("document_id = %v", result["document_id"])
				}
				if result["chunks_count"] != float64(4) {
					t.Errorf("chunks_count = %v", result["chunks_count"])
				}
			},
		},
		{
			name:        "invalid JSON payload returns 400",
			requestBody: `{invalid json}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "missing user_id fails validation",
			requestBody: `{"document_id": "` + validDocID.String() + `", "storage_key": "k", "file_extension": "txt"}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "invalid document_id fails validation",
			requestBody: `{"document_id": "not-a-uuid", "user_id": "u", "storage_key": "k", "file_extension": "txt"}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unknown document returns 404",
			requestBody: validBody(validDocID),
			setup: func(p *mockProcessor) {
				p.On("Process", mock.Anything, mock.Anything).
					Return(ingest.Result{}, store.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:        "concurrent processing returns 409",
			requestBody: validBody(validDocID),
			setup: func(p *mockProcessor) {
				p.On("Process", mock.Anything, mock.Anything).
					Return(ingest.Result{}, ingest.ErrAlreadyProcessing).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:        "empty document returns 400",
			requestBody: validBody(validDocID),
			setup: func(p *mockProcessor) {
				p.On("Process", mock.Anything, mock.Anything).
					Return(ingest.Result{}, ingest.ErrEmptyDocument).Once()
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "upstream failure returns generic 500",
			requestBody: validBody(validDocID),
			setup: func(p *mockProcessor) {
				p.On("Process", mock.Anything, mock.Anything).
					Return(ingest.Result{}, errors.New("openai: rate limited, key sk-123")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, resp *http.Response) {
				body, _ := io.ReadAll(resp.Body)
				if strings.Contains(string(body), "sk-123") {
					t.Errorf("upstream detail leaked to the caller: %s", body)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockProcessor)
			if tt.setup != nil {
				tt.setup(p)
			}

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			handler := processHandler(log, p)

			req := httptest.NewRequest(http.MethodPost, "/process/document", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			p.AssertExpectations(t)
		})
	}
}

func TestCreateDocumentHandler(t *testing.T) {
	docID := uuid.New()

	tests := []struct {
		name          string
		requestBody   string
		setup         func(*store.MockStore)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:        "registers document",
			requestBody: `{"user_id": "user-1", "filename": "report.pdf"}`,
			setup: func(st *store.MockStore) {
				st.On("CreateDocument", mock.Anything, "user-1", "report.pdf").
					Return(store.Document{ID: docID, UserID: "user-1", Filename: "report.pdf", Status: store.StatusUploaded}, nil).Once()
			},
			wantStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["document_id"] != docID.String() {
					t.Errorf("document_id = %v", result["document_id"])
				}
				if result["status"] != string(store.StatusUploaded) {
					t.Errorf("status = %v", result["status"])
				}
			},
		},
		{
			name:        "invalid JSON payload returns 400",
			requestBody: `{invalid json}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "missing filename fails validation",
			requestBody: `{"user_id": "user-1"}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "store failure returns 500",
			requestBody: `{"user_id": "user-1", "filename": "report.pdf"}`,
			setup: func(st *store.MockStore) {
				st.On("CreateDocument", mock.Anything, "user-1", "report.pdf").
					Return(store.Document{}, errors.New("connection refused")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &store.MockStore{}
			if tt.setup != nil {
				tt.setup(st)
			}

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			handler := createDocumentHandler(log, st)

			req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			st.AssertExpectations(t)
		})
	}
}

func TestListChunksHandler(t *testing.T) {
	docID := uuid.New()
	page := 2
	chunks := []store.Chunk{
		{ID: uuid.New(), DocumentID: docID, Index: 0, Text: "first chunk", Size: 11},
		{ID: uuid.New(), DocumentID: docID, Index: 1, Text: "second chunk", Size: 12, PageNumber: &page},
	}

	tests := []struct {
		name          string
		docID         string
		setup         func(*store.MockStore)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:  "lists stored chunks",
			docID: docID.String(),
			setup: func(st *store.MockStore) {
				st.On("GetDocument", mock.Anything, docID).
					Return(store.Document{ID: docID, Status: store.StatusCompleted}, nil).Once()
				st.On("ListChunks", mock.Anything, docID).Return(chunks, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result listChunksResponse
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result.ChunksCount != 2 || len(result.Chunks) != 2 {
					t.Fatalf("chunks_count = %d, chunks = %d", result.ChunksCount, len(result.Chunks))
				}
				if result.Chunks[0].Text != "first chunk" || result.Chunks[0].Index != 0 {
					t.Errorf("unexpected first chunk: %+v", result.Chunks[0])
				}
				if result.Chunks[1].PageNumber == nil || *result.Chunks[1].PageNumber != 2 {
					t.Errorf("unexpected page number: %+v", result.Chunks[1])
				}
				if result.Status != string(store.StatusCompleted) {
					t.Errorf("status = %v", result.Status)
				}
			},
		},
		{
			name:       "invalid document id returns 400",
			docID:      "not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "unknown document returns 404",
			docID: docID.String(),
			setup: func(st *store.MockStore) {
				st.On("GetDocument", mock.Anything, docID).
					Return(store.Document{}, store.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "store failure returns 500",
			docID: docID.String(),
			setup: func(st *store.MockStore) {
				st.On("GetDocument", mock.Anything, docID).
					Return(store.Document{ID: docID, Status: store.StatusCompleted}, nil).Once()
				st.On("ListChunks", mock.Anything, docID).
					Return(nil, errors.New("connection refused")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &store.MockStore{}
			if tt.setup != nil {
				tt.setup(st)
			}

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			handler := listChunksHandler(log, st)

			req := httptest.NewRequest(http.MethodGet, "/documents/"+tt.docID+"/chunks", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.docID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			st.AssertExpectations(t)
		})
	}
}
