package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/cache"
	"docqa/internal/embeddings"
	"docqa/internal/llm"
	"docqa/internal/metrics"
	"docqa/internal/store"
)

// Params fixes the retrieval and synthesis knobs for a Service instance.
type Params struct {
	Provider            string
	Model               string
	Temperature         float64
	MaxTokens           int
	TopK                int
	SimilarityThreshold float64
	MaxContextLength    int
}

// Service runs the full question-answering flow.
type Service struct {
	log      *slog.Logger
	store    store.Store
	embedder embeddings.Embedder
	llm      llm.Client
	cache    cache.Cache
	params   Params
	metrics  *metrics.Metrics
}

// NewService wires the query path together. m may be nil.
func NewService(log *slog.Logger, st store.Store, embedder embeddings.Embedder, client llm.Client, c cache.Cache, params Params, m *metrics.Metrics) *Service {
	return &Service{
		log:      log,
		store:    st,
		embedder: embedder,
		llm:      client,
		cache:    c,
		params:   params,
		metrics:  m,
	}
}

// Ask answers a question against the user's documents. Deterministic
// (zero-temperature) answers are served from and written to the answer cache;
// an empty retrieval returns the fallback answer without a chat call.
func (s *Service) Ask(ctx context.Context, q Query) (Answer, error) {
	log := s.log.With("user_id", q.UserID)
	start := time.Now()
	defer func() { s.metrics.Stage("total", time.Since(start)) }()

	docIDs := make([]string, len(q.DocumentIDs))
	for i, id := range q.DocumentIDs {
		docIDs[i] = id.String()
	}

	if s.params.Temperature == 0 {
		if hit, ok := s.cache.GetAnswer(ctx, q.Question, docIDs, q.UserID); ok {
			s.metrics.CacheHit("answer")
			log.Info("answer cache hit")
			return fromCached(q.Question, hit), nil
		}
		s.metrics.CacheMiss("answer")
	}

	results, err := s.retrieve(ctx, q)
	if err != nil {
		return Answer{}, err
	}
	log.Info("chunks retrieved", "count", len(results))

	if len(results) == 0 {
		return Answer{
			Question: q.Question,
			Answer:   FallbackAnswer,
			Chunks:   []RetrievedChunk{},
		}, nil
	}

	contextText := AssembleContext(results, s.params.MaxContextLength)

	genStart := time.Now()
	resp, err := s.llm.ChatCompletion(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, q.Question)},
		},
		Provider:    s.params.Provider,
		Model:       s.params.Model,
		Temperature: s.params.Temperature,
		MaxTokens:   s.params.MaxTokens,
	})
	s.metrics.Stage("generation", time.Since(genStart))
	if err != nil {
		return Answer{}, fmt.Errorf("answer synthesis: %w", err)
	}

	answer := Answer{
		Question:         q.Question,
		Answer:           resp.Content,
		Chunks:           summarize(results),
		TotalChunksFound: len(results),
	}

	if s.params.Temperature == 0 {
		s.cache.SetAnswer(ctx, q.Question, docIDs, q.UserID, s.params.Temperature, toCached(answer))
	}
	return answer, nil
}

// retrieve embeds the question and ranks the user's chunks. An empty result
// is a valid outcome, not an error.
func (s *Service) retrieve(ctx context.Context, q Query) ([]store.SearchResult, error) {
	embedStart := time.Now()
	vectors, err := s.embedder.EmbedBatch(ctx, []string{q.Question})
	s.metrics.Stage("embedding", time.Since(embedStart))
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 question vector, got %d", len(vectors))
	}

	topK := q.TopK
	if topK <= 0 {
		topK = s.params.TopK
	}
	searchStart := time.Now()
	results, err := s.store.Search(ctx, store.SearchParams{
		UserID:      q.UserID,
		Vector:      vectors[0],
		TopK:        topK,
		DocumentIDs: q.DocumentIDs,
		Threshold:   s.params.SimilarityThreshold,
	})
	s.metrics.Stage("retrieval", time.Since(searchStart))
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	s.metrics.Chunks(len(results))
	return results, nil
}

func summarize(results []store.SearchResult) []RetrievedChunk {
	chunks := make([]RetrievedChunk, len(results))
	for i, r := range results {
		chunks[i] = RetrievedChunk{
			ChunkID:    r.Chunk.ID.String(),
			DocumentID: r.Chunk.DocumentID.String(),
			Text:       preview(r.Chunk.Text),
			Score:      r.Score,
			Index:      r.Chunk.Index,
		}
	}
	return chunks
}

func toCached(a Answer) *cache.Answer {
	refs := make([]cache.ChunkRef, len(a.Chunks))
	for i, c := range a.Chunks {
		refs[i] = cache.ChunkRef(c)
	}
	return &cache.Answer{
		Question:         a.Question,
		Answer:           a.Answer,
		Chunks:           refs,
		TotalChunksFound: a.TotalChunksFound,
	}
}

func fromCached(question string, a *cache.Answer) Answer {
	chunks := make([]RetrievedChunk, len(a.Chunks))
	for i, ref := range a.Chunks {
		chunks[i] = RetrievedChunk(ref)
	}
	return Answer{
		Question:         question,
		Answer:           a.Answer,
		Chunks:           chunks,
		TotalChunksFound: a.TotalChunksFound,
		Cached:           true,
	}
}
