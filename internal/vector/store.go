// Package vector provides chunk storage with cosine similarity search.
package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// Record is one chunk to be stored.
type Record struct {
	Content   string
	Metadata  map[string]interface{}
	Embedding []float32
}

// Store persists chunks with their embeddings and serves nearest-neighbour search.
//
// Search returns at most topK results ordered by descending similarity, where similarity is
// 1 - cosine distance. Equal similarities are ordered by insertion, so results are
// deterministic for a fixed store state. Vectors whose length differs from Dimensions are
// rejected with apperr.ErrConfiguration; connectivity failures are apperr.ErrStoreUnavailable.
type Store interface {
	Insert(ctx context.Context, content string, metadata map[string]interface{}, embedding []float32) (string, error)
	// InsertBatch stores all records or none of them.
	InsertBatch(ctx context.Context, records []Record) ([]string, error)
	Search(ctx context.Context, query []float32, topK int) ([]*models.RetrievedChunk, error)
	// DeleteBySource removes every chunk whose "source" metadata equals source.
	DeleteBySource(ctx context.Context, source string) (int, error)
	Count(ctx context.Context) (int64, error)
	Dimensions() int
	Close() error
}

// candidate is a scored chunk plus its insertion sequence, used for stable ranking.
type candidate struct {
	chunk *models.RetrievedChunk
	seq   int64
}

// rank sorts candidates by similarity (desc) then insertion sequence (asc) and keeps topK.
func rank(cands []candidate, topK int) []*models.RetrievedChunk {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].chunk.Similarity != cands[j].chunk.Similarity {
			return cands[i].chunk.Similarity > cands[j].chunk.Similarity
		}
		return cands[i].seq < cands[j].seq
	})
	if topK > len(cands) {
		topK = len(cands)
	}
	out := make([]*models.RetrievedChunk, topK)
	for i := 0; i < topK; i++ {
		out[i] = cands[i].chunk
	}
	return out
}

func checkDims(op string, want int, vec []float32) error {
	if len(vec) != want {
		return apperr.ConfigurationError(op, "vector dimension mismatch: got %d, expected %d", len(vec), want)
	}
	return nil
}

func checkRecords(op string, dims int, records []Record) error {
	for i, r := range records {
		if err := checkDims(op, dims, r.Embedding); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func sourceOf(metadata map[string]interface{}) string {
	if s, ok := metadata[models.MetaSource].(string); ok {
		return s
	}
	return ""
}
