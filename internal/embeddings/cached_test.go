package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"

	"docqa/internal/cache"
	"docqa/internal/metrics"
)

func TestCachedEmbedderPerTextLookup(t *testing.T) {
	ctx := context.Background()
	inner := &MockEmbedder{}
	c := &cache.MockCache{}
	e := NewCachedEmbedder(inner, c, 100, nil)

	inner.On("Model").Return("m")
	// "hello" is cached, "world" is not.
	c.On("GetEmbedding", mock.Anything, "hello", "m").Return([]float32{1, 2}, true).Once()
	c.On("GetEmbedding", mock.Anything, "world", "m").Return(nil, false).Once()
	inner.On("EmbedBatch", mock.Anything, []string{"world"}).Return([]Vector{{3, 4}}, nil).Once()
	c.On("SetEmbedding", mock.Anything, "world", "m", []float32{3, 4}).Return().Once()

	got, err := e.EmbedBatch(ctx, []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
	if got[0][0] != 1 || got[1][0] != 3 {
		t.Errorf("vectors out of input order: %v", got)
	}
	inner.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCachedEmbedderAllCached(t *testing.T) {
	inner := &MockEmbedder{}
	c := &cache.MockCache{}
	e := NewCachedEmbedder(inner, c, 100, nil)

	inner.On("Model").Return("m")
	c.On("GetEmbedding", mock.Anything, "a", "m").Return([]float32{1}, true).Once()
	c.On("GetEmbedding", mock.Anything, "b", "m").Return([]float32{2}, true).Once()

	got, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("unexpected vectors: %v", got)
	}
	// No provider call at all.
	inner.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestCachedEmbedderProviderFailureAborts(t *testing.T) {
	inner := &MockEmbedder{}
	c := &cache.MockCache{}
	e := NewCachedEmbedder(inner, c, 100, nil)

	inner.On("Model").Return("m")
	c.On("GetEmbedding", mock.Anything, mock.Anything, "m").Return(nil, false)
	inner.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, errors.New("upstream down"))

	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when provider fails")
	}
	c.AssertNotCalled(t, "SetEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedEmbedderSplitsBatches(t *testing.T) {
	inner := &MockEmbedder{}
	c := &cache.MockCache{}
	e := NewCachedEmbedder(inner, c, 2, nil)

	inner.On("Model").Return("m")
	c.On("GetEmbedding", mock.Anything, mock.Anything, "m").Return(nil, false)
	c.On("SetEmbedding", mock.Anything, mock.Anything, "m", mock.Anything).Return()
	inner.On("EmbedBatch", mock.Anything, []string{"t0", "t1"}).Return([]Vector{{0}, {1}}, nil).Once()
	inner.On("EmbedBatch", mock.Anything, []string{"t2"}).Return([]Vector{{2}}, nil).Once()

	got, err := e.EmbedBatch(context.Background(), []string{"t0", "t1", "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, vec := range got {
		if int(vec[0]) != i {
			t.Errorf("vector %d out of order: %v", i, vec)
		}
	}
	inner.AssertExpectations(t)
}

func TestCachedEmbedderRecordsCacheMetrics(t *testing.T) {
	inner := &MockEmbedder{}
	c := &cache.MockCache{}
	m := metrics.New("testsvc")
	e := NewCachedEmbedder(inner, c, 100, m)

	inner.On("Model").Return("m")
	c.On("GetEmbedding", mock.Anything, "hit", "m").Return([]float32{1}, true).Once()
	c.On("GetEmbedding", mock.Anything, "miss", "m").Return(nil, false).Once()
	inner.On("EmbedBatch", mock.Anything, []string{"miss"}).Return([]Vector{{2}}, nil).Once()
	c.On("SetEmbedding", mock.Anything, "miss", "m", mock.Anything).Return().Once()

	if _, err := e.EmbedBatch(context.Background(), []string{"hit", "miss"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("embedding")); got != 1 {
		t.Errorf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses.WithLabelValues("embedding")); got != 1 {
		t.Errorf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("m", "embedding")); got != 1 {
		t.Errorf("provider requests = %v", got)
	}
}

func TestCachedEmbedderEmptyInput(t *testing.T) {
	e := NewCachedEmbedder(&MockEmbedder{}, cache.NewNoOpCache(), 10, nil)
	got, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for empty input, got %v, %v", got, err)
	}
}
