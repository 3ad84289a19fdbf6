// Package models defines core data structures for documents, chunks, chat results, and conversation turns.
package models

import "time"

// Metadata keys set on every stored chunk.
const (
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
	MetaSource     = "source"
)

// DocumentInput is one document of an ingest call.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Chunk is a bounded span of document text stored with its embedding.
type Chunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	Content    string                 `json:"content" db:"content"`
	ChunkIndex int                    `json:"chunk_index" db:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata" db:"metadata"`
	Embedding  []float32              `json:"-" db:"-"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// RetrievedChunk is a search hit. Similarity is 1 - cosine distance; higher is more relevant.
type RetrievedChunk struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Similarity float64                `json:"similarity"`
}

// CopyMetadata returns a shallow copy of m; never nil.
func CopyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+3)
	for k, v := range m {
		out[k] = v
	}
	return out
}
