package vector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path, 2)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Insert(ctx, "kept", map[string]interface{}{"source": "/a.txt"}, []float32{0.25, -1.5})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewSQLiteStore(ctx, path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	results, err := s.Search(ctx, []float32{0.25, -1.5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != id || results[0].Content != "kept" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Metadata["source"] != "/a.txt" {
		t.Errorf("metadata = %v", results[0].Metadata)
	}
	if size, err := s.DiskUsageBytes(); err != nil || size == 0 {
		t.Errorf("DiskUsageBytes = %d, %v", size, err)
	}
}

func TestSQLiteStore_ReopenWithOtherDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path, 4)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	_, err = NewSQLiteStore(ctx, path, 8)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Insert(context.Background(), "c", nil, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(context.Background()); n != 1 {
		t.Errorf("Count=%d", n)
	}
}

func TestSQLiteStore_ClosedIsUnavailable(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "v.db"), 2)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	_, err = s.Search(context.Background(), []float32{1, 0}, 1)
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("err = %v, want store unavailable", err)
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
