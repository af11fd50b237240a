package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"docqa/internal/app"
	"docqa/internal/httputil"
	"docqa/internal/rag"
)

type askRequest struct {
	Question    string   `json:"question" validate:"required,min=1,max=2000"`
	DocumentIDs []string `json:"document_ids" validate:"omitempty,dive,uuid4"`
	TopK        int      `json:"top_k" validate:"omitempty,min=1,max=20"`
}

// asker is what the handler needs from the question-answering service.
type asker interface {
	Ask(ctx context.Context, q rag.Query) (rag.Answer, error)
}

func main() {
	deps, err := app.BuildQuery()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	svc := rag.NewService(deps.Log, deps.Store, deps.Embedder, deps.LLM, deps.Cache, rag.Params{
		Provider:            deps.Config.LLMProvider,
		Model:               deps.Config.LLMModel,
		Temperature:         deps.Config.Temperature,
		MaxTokens:           deps.Config.MaxTokens,
		TopK:                deps.Config.TopK,
		SimilarityThreshold: deps.Config.SimilarityThreshold,
		MaxContextLength:    deps.Config.MaxContextLength,
	}, deps.Metrics)

	r := httputil.NewRouter(deps.Log)
	r.Use(httputil.Metrics(deps.Metrics))
	r.Post("/rag/ask", askHandler(deps.Log, svc))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", deps.Metrics.Handler())

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("query service listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server error", "err", err)
	}
}

func askHandler(log *slog.Logger, svc asker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Identity is established upstream; the gateway forwards it here.
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			httputil.Fail(log, w, "missing X-User-ID header", nil, http.StatusBadRequest)
			return
		}

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(log, w, err)
			return
		}

		docIDs := make([]uuid.UUID, len(req.DocumentIDs))
		for i, s := range req.DocumentIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				httputil.Fail(log, w, "invalid document id", err, http.StatusBadRequest)
				return
			}
			docIDs[i] = id
		}

		answer, err := svc.Ask(r.Context(), rag.Query{
			Question:    req.Question,
			UserID:      userID,
			DocumentIDs: docIDs,
			TopK:        req.TopK,
		})
		if err != nil {
			// Provider detail stays in the logs; the caller gets a generic failure.
			httputil.Fail(log, w, "failed to answer question", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, answer)
	}
}
