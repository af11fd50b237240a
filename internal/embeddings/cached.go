package embeddings

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/cache"
	"docqa/internal/metrics"
)

// CachedEmbedder fronts another Embedder with a content-addressed cache.
// Lookups happen per text, not per batch, so overlapping chunk sets across
// documents reuse each other's vectors. Cache misses are batched to the
// underlying provider; batches run in parallel and vectors are reassembled
// in input order before anything is returned.
type CachedEmbedder struct {
	inner     Embedder
	cache     cache.Cache
	batchSize int
	metrics   *metrics.Metrics
}

// NewCachedEmbedder wraps inner with c. batchSize bounds the number of texts
// per provider call. m may be nil.
func NewCachedEmbedder(inner Embedder, c cache.Cache, batchSize int, m *metrics.Metrics) *CachedEmbedder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CachedEmbedder{inner: inner, cache: c, batchSize: batchSize, metrics: m}
}

func (e *CachedEmbedder) Model() string {
	return e.inner.Model()
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := e.inner.Model()
	vectors := make([]Vector, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.GetEmbedding(ctx, text, model); ok {
			e.metrics.CacheHit("embedding")
			vectors[i] = vec
			continue
		}
		e.metrics.CacheMiss("embedding")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		fresh, err := e.embedMisses(ctx, missTexts)
		if err != nil {
			// Abort the whole operation: callers must never see a chunk set
			// where some texts embedded and others did not.
			return nil, err
		}
		for j, vec := range fresh {
			vectors[missIdx[j]] = vec
			e.cache.SetEmbedding(ctx, missTexts[j], model, vec)
		}
	}

	return vectors, nil
}

// embedMisses splits texts into provider-sized batches, runs them in
// parallel, and reassembles results in input order.
func (e *CachedEmbedder) embedMisses(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			callStart := time.Now()
			batch, err := e.inner.EmbedBatch(gctx, texts[start:end])
			e.metrics.ProviderCall(e.inner.Model(), "embedding", time.Since(callStart), err)
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("provider returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(out[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
