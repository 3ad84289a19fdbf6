package embedding

import (
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
)

// New builds the configured embedder and wraps it with a cache when cache_size > 0.
func New(cfg config.EmbeddingConfig, llm config.LLMConfig, logger *zap.Logger) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case "openai", "":
		e = NewOpenAIEmbedder(cfg, llm, WithLogger(logger))
	case "hash":
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, apperr.ConfigurationError("embedding.New", "unknown provider %q", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
