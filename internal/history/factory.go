package history

import (
	"context"
	"time"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
)

// New creates the history store selected by cfg.Type.
func New(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		s, err := NewSQLiteStore(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		client, err := NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, apperr.ConfigurationError("history.New", "%v", err)
		}
		s, err := NewRedisStore(ctx, client, cfg.Redis.KeyPrefix, time.Duration(cfg.Redis.TTLHours)*time.Hour)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return s, nil
	case "none":
		return NopStore{}, nil
	default:
		return nil, apperr.ConfigurationError("history.New", "unknown history type: %s (supported: sqlite, redis, none)", cfg.Type)
	}
}
