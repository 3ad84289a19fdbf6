package config

import (
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
)

// Validate checks cross-field constraints. All failures are configuration errors and
// are meant to stop the process at startup.
func Validate(cfg *Config) error {
	const op = "config.Validate"
	size, overlap := cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault()
	if size <= 0 {
		return apperr.ConfigurationError(op, "chunk_size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return apperr.ConfigurationError(op, "chunk_overlap (%d) must be in [0, chunk_size=%d)", overlap, size)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return apperr.ConfigurationError(op, "embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Retrieval.TopK <= 0 {
		return apperr.ConfigurationError(op, "retrieval top_k must be positive, got %d", cfg.Retrieval.TopK)
	}
	switch cfg.Embedding.Provider {
	case "openai", "hash":
	default:
		return apperr.ConfigurationError(op, "unknown embedding provider %q (supported: openai, hash)", cfg.Embedding.Provider)
	}
	switch cfg.Store.Type {
	case "memory", "sqlite", "chroma":
	default:
		return apperr.ConfigurationError(op, "unknown store type %q (supported: memory, sqlite, chroma)", cfg.Store.Type)
	}
	switch cfg.History.Type {
	case "sqlite", "redis", "none":
	default:
		return apperr.ConfigurationError(op, "unknown history type %q (supported: sqlite, redis, none)", cfg.History.Type)
	}
	if cfg.Ingest.Concurrency < 0 {
		return apperr.ConfigurationError(op, "ingest concurrency must not be negative, got %d", cfg.Ingest.Concurrency)
	}
	return nil
}
