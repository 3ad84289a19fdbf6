package vector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// storeFactories builds each local backend for the shared behaviour tests below.
func storeFactories() map[string]func(t *testing.T, dims int) Store {
	return map[string]func(t *testing.T, dims int) Store{
		"memory": func(t *testing.T, dims int) Store {
			s, err := NewMemoryStore(dims)
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
		"sqlite": func(t *testing.T, dims int) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "vectors.db"), dims)
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}
}

func TestStore_InsertSearch(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 3)
			defer s.Close()
			ctx := context.Background()

			for _, r := range []struct {
				content string
				vec     []float32
			}{
				{"x axis", []float32{1, 0, 0}},
				{"mostly x", []float32{0.9, 0.1, 0}},
				{"y axis", []float32{0, 1, 0}},
			} {
				id, err := s.Insert(ctx, r.content, map[string]interface{}{"k": "v"}, r.vec)
				if err != nil {
					t.Fatal(err)
				}
				if id == "" {
					t.Fatal("empty id")
				}
			}
			if n, _ := s.Count(ctx); n != 3 {
				t.Errorf("Count=%d, want 3", n)
			}

			results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 2 {
				t.Fatalf("expected 2 results, got %d", len(results))
			}
			if results[0].Content != "x axis" || results[1].Content != "mostly x" {
				t.Errorf("order = %q, %q", results[0].Content, results[1].Content)
			}
			if results[0].Similarity < 0.999 {
				t.Errorf("identical vector similarity = %f, want 1", results[0].Similarity)
			}
			if results[0].Similarity < results[1].Similarity {
				t.Error("results not sorted by similarity")
			}
			if results[0].Metadata["k"] != "v" {
				t.Errorf("metadata = %v", results[0].Metadata)
			}
		})
	}
}

func TestStore_TopKLargerThanCount(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 2)
			defer s.Close()
			ctx := context.Background()
			_, err := s.InsertBatch(ctx, []Record{
				{Content: "a", Embedding: []float32{1, 0}},
				{Content: "b", Embedding: []float32{0, 1}},
			})
			if err != nil {
				t.Fatal(err)
			}
			results, err := s.Search(ctx, []float32{1, 1}, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 2 {
				t.Errorf("got %d results, want 2 (no padding)", len(results))
			}
		})
	}
}

func TestStore_EmptySearch(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 2)
			defer s.Close()
			results, err := s.Search(context.Background(), []float32{1, 0}, 4)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 0 {
				t.Errorf("got %d results from empty store", len(results))
			}
		})
	}
}

func TestStore_TiesBrokenByInsertionOrder(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 2)
			defer s.Close()
			ctx := context.Background()
			for _, c := range []string{"first", "second", "third"} {
				if _, err := s.Insert(ctx, c, nil, []float32{0.6, 0.8}); err != nil {
					t.Fatal(err)
				}
			}
			for run := 0; run < 3; run++ {
				results, err := s.Search(ctx, []float32{1, 0}, 3)
				if err != nil {
					t.Fatal(err)
				}
				got := []string{results[0].Content, results[1].Content, results[2].Content}
				want := []string{"first", "second", "third"}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("run %d: order = %v, want %v", run, got, want)
					}
				}
			}
		})
	}
}

func TestStore_DimensionMismatch(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 3)
			defer s.Close()
			ctx := context.Background()

			if _, err := s.Insert(ctx, "bad", nil, []float32{1, 0}); !errors.Is(err, apperr.ErrConfiguration) {
				t.Errorf("Insert wrong dims: err = %v, want configuration error", err)
			}
			if _, err := s.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, apperr.ErrConfiguration) {
				t.Errorf("Search wrong dims: err = %v, want configuration error", err)
			}
		})
	}
}

func TestStore_InsertBatchIsAtomic(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 2)
			defer s.Close()
			ctx := context.Background()
			_, err := s.InsertBatch(ctx, []Record{
				{Content: "ok", Embedding: []float32{1, 0}},
				{Content: "bad", Embedding: []float32{1, 0, 0}},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if n, _ := s.Count(ctx); n != 0 {
				t.Errorf("Count=%d after failed batch, want 0", n)
			}
		})
	}
}

func TestStore_DeleteBySource(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 2)
			defer s.Close()
			ctx := context.Background()
			_, err := s.InsertBatch(ctx, []Record{
				{Content: "a1", Metadata: map[string]interface{}{models.MetaSource: "/docs/a.txt"}, Embedding: []float32{1, 0}},
				{Content: "a2", Metadata: map[string]interface{}{models.MetaSource: "/docs/a.txt"}, Embedding: []float32{0, 1}},
				{Content: "b1", Metadata: map[string]interface{}{models.MetaSource: "/docs/b.txt"}, Embedding: []float32{1, 1}},
			})
			if err != nil {
				t.Fatal(err)
			}
			n, err := s.DeleteBySource(ctx, "/docs/a.txt")
			if err != nil {
				t.Fatal(err)
			}
			if n != 2 {
				t.Errorf("removed %d, want 2", n)
			}
			results, _ := s.Search(ctx, []float32{1, 0}, 5)
			if len(results) != 1 || results[0].Content != "b1" {
				t.Errorf("remaining = %v", results)
			}
		})
	}
}

func TestStore_MetadataIsCopied(t *testing.T) {
	s, _ := NewMemoryStore(2)
	ctx := context.Background()
	meta := map[string]interface{}{"title": "original"}
	if _, err := s.Insert(ctx, "c", meta, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	meta["title"] = "changed"
	results, _ := s.Search(ctx, []float32{1, 0}, 1)
	if results[0].Metadata["title"] != "original" {
		t.Errorf("stored metadata aliased caller map: %v", results[0].Metadata)
	}
}

func TestNewMemoryStore_InvalidDimensions(t *testing.T) {
	if _, err := NewMemoryStore(0); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}
