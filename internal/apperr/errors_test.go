package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindsMatchThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("search: %w", StoreUnavailable("vector.Search", cause))

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("expected ErrStoreUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if errors.Is(err, ErrEmbeddingUnavailable) {
		t.Error("unexpected ErrEmbeddingUnavailable")
	}
	var ae *Error
	if !errors.As(err, &ae) || ae.Op != "vector.Search" {
		t.Errorf("errors.As: got %+v", ae)
	}
}

func TestIsDegradable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"store", StoreUnavailable("op", nil), true},
		{"embedding", EmbeddingUnavailable("op", errors.New("429")), true},
		{"generation", GenerationFailed("op", nil), false},
		{"configuration", ConfigurationError("op", "dims %d != %d", 3, 4), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDegradable(tt.err); got != tt.want {
				t.Errorf("IsDegradable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := ConfigurationError("indexer.NewChunker", "chunk_overlap (%d) must be less than chunk_size (%d)", 200, 100)
	want := "indexer.NewChunker: configuration error: chunk_overlap (200) must be less than chunk_size (100)"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if got := (&Error{Kind: ErrGenerationFailed}).Error(); got != "generation failed" {
		t.Errorf("bare kind: got %q", got)
	}
}
