// Package retrieval fetches the stored chunks most similar to a query.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/embedding"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/vector"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// Retriever embeds a query and searches the vector store.
type Retriever struct {
	embedder embedding.Embedder
	store    vector.Store
	topK     int
	logger   *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever returns a retriever using topK when a call does not specify one.
func NewRetriever(embedder embedding.Embedder, store vector.Store, topK int, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, store: store, topK: topK}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Retrieve returns up to topK chunks ordered by descending similarity; topK <= 0 uses the
// default. Retrieval is best effort: if the embedding model or the store is unavailable the
// failure is logged and an empty context is returned with a nil error. Other errors, such as
// a dimension mismatch or cancellation, are returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]*models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return r.degrade("embed query", err)
	}
	chunks, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return r.degrade("search", err)
	}
	r.logger.Debug("Retrieved context", zap.Int("chunks", len(chunks)), zap.Int("top_k", topK))
	return chunks, nil
}

func (r *Retriever) degrade(step string, err error) ([]*models.RetrievedChunk, error) {
	if apperr.IsDegradable(err) {
		r.logger.Warn("Retrieval unavailable, continuing without context",
			zap.String("step", step), zap.Error(err))
		return []*models.RetrievedChunk{}, nil
	}
	return nil, fmt.Errorf("retrieval %s: %w", step, err)
}
