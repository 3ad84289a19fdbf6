package vector

import (
	"context"

	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
)

// StoreType names a vector store backend.
type StoreType string

const (
	// StoreTypeMemory keeps vectors in process memory. Nothing survives a restart.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeSQLite keeps vectors in a local SQLite file.
	StoreTypeSQLite StoreType = "sqlite"
	// StoreTypeChroma keeps vectors in a Chroma server.
	StoreTypeChroma StoreType = "chroma"
)

// NewStore creates the store selected by cfg.Type for embeddings of the given dimension.
func NewStore(ctx context.Context, cfg config.StoreConfig, dimensions int, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch StoreType(cfg.Type) {
	case StoreTypeMemory:
		store, err = NewMemoryStore(dimensions)
	case StoreTypeSQLite, "":
		store, err = NewSQLiteStore(ctx, cfg.DatabasePath, dimensions, WithSQLiteLogger(logger))
	case StoreTypeChroma:
		store, err = NewChromaStore(ctx, cfg.Chroma, dimensions, WithChromaLogger(logger))
	default:
		return nil, apperr.ConfigurationError("vector.NewStore", "unknown store type: %s (supported: memory, sqlite, chroma)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
