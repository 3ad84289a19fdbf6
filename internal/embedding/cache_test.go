package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len: got %d", c.Len())
	}
}

// countingEmbedder records how many texts reach the upstream embedder.
type countingEmbedder struct {
	*HashEmbedder
	batches [][]string
	err     error
	drop    int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	vecs, err := c.HashEmbedder.EmbedBatch(ctx, texts)
	if err != nil || c.drop == 0 {
		return vecs, err
	}
	return vecs[:len(vecs)-c.drop], nil
}

func TestCachedEmbedder_EmbedBatchOnlyForwardsMisses(t *testing.T) {
	ctx := context.Background()
	upstream := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	cached := NewCachedEmbedder(upstream, 10)

	first, err := cached.EmbedBatch(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := cached.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(upstream.batches) != 2 {
		t.Fatalf("upstream batches: got %d", len(upstream.batches))
	}
	if got := upstream.batches[1]; len(got) != 1 || got[0] != "gamma" {
		t.Errorf("second batch should only contain the miss, got %v", got)
	}
	if !equalVec(first[0], second[2]) || !equalVec(first[1], second[0]) {
		t.Error("cached vectors returned in the wrong positions")
	}
	if cached.Dimensions() != 8 {
		t.Errorf("Dimensions: got %d", cached.Dimensions())
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	upstream := &countingEmbedder{HashEmbedder: NewHashEmbedder(8), err: errors.New("down")}
	cached := NewCachedEmbedder(upstream, 10)
	if _, err := cached.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
	if cached.cache.Len() != 0 {
		t.Error("failed batch must not populate the cache")
	}
}

func TestCachedEmbedder_ShortBatch(t *testing.T) {
	ctx := context.Background()
	upstream := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	cached := NewCachedEmbedder(upstream, 10)
	if _, err := cached.EmbedBatch(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}

	upstream.drop = 1
	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if !apperr.Is(err, apperr.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want embedding unavailable", err)
	}
	if vecs != nil {
		t.Errorf("vecs = %v, want nil", vecs)
	}
	if cached.cache.Len() != 1 {
		t.Errorf("cache Len = %d, want 1", cached.cache.Len())
	}
}

func equalVec(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
