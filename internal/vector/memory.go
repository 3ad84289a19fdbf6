package vector

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// MemoryStore is an in-memory store using brute-force cosine search.
// Suitable for tests and small corpora; contents are lost on exit.
type MemoryStore struct {
	dimensions int
	entries    []memoryEntry // insertion order
	nextSeq    int64
	mu         sync.RWMutex
}

type memoryEntry struct {
	seq      int64
	id       string
	content  string
	metadata map[string]interface{}
	vector   []float32
}

// NewMemoryStore creates an in-memory store with the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, apperr.ConfigurationError("vector.NewMemoryStore", "dimensions must be positive, got %d", dimensions)
	}
	return &MemoryStore{dimensions: dimensions}, nil
}

// Insert stores one chunk.
func (m *MemoryStore) Insert(ctx context.Context, content string, metadata map[string]interface{}, embedding []float32) (string, error) {
	ids, err := m.InsertBatch(ctx, []Record{{Content: content, Metadata: metadata, Embedding: embedding}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertBatch validates every record before appending any of them.
func (m *MemoryStore) InsertBatch(ctx context.Context, records []Record) ([]string, error) {
	if err := checkRecords("vector.Memory.InsertBatch", m.dimensions, records); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(records))
	for i, r := range records {
		vec := make([]float32, m.dimensions)
		copy(vec, r.Embedding)
		ids[i] = uuid.New().String()
		m.entries = append(m.entries, memoryEntry{
			seq:      m.nextSeq,
			id:       ids[i],
			content:  r.Content,
			metadata: models.CopyMetadata(r.Metadata),
			vector:   vec,
		})
		m.nextSeq++
	}
	return ids, nil
}

// Search returns the topK chunks most similar to query.
func (m *MemoryStore) Search(ctx context.Context, query []float32, topK int) ([]*models.RetrievedChunk, error) {
	if err := checkDims("vector.Memory.Search", m.dimensions, query); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	cands := make([]candidate, len(m.entries))
	for i, e := range m.entries {
		cands[i] = candidate{
			seq: e.seq,
			chunk: &models.RetrievedChunk{
				ID:         e.id,
				Content:    e.content,
				Metadata:   models.CopyMetadata(e.metadata),
				Similarity: utils.CosineSimilarity(query, e.vector),
			},
		}
	}
	return rank(cands, topK), nil
}

// DeleteBySource removes chunks whose source metadata matches.
func (m *MemoryStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if sourceOf(e.metadata) == source {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// Count returns the number of stored chunks.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// Dimensions returns the embedding dimension.
func (m *MemoryStore) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
