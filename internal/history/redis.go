package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// RedisStore keeps each session as a Redis list of JSON turns, oldest first. Every append
// refreshes the session's expiry.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient builds a client from cfg. URL takes precedence over Addr/Password/DB.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}), nil
}

// NewRedisStore wraps client. It pings the server so a bad address fails at startup.
func NewRedisStore(ctx context.Context, client *redis.Client, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Append pushes turn onto its session list.
func (s *RedisStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	stamp(turn)
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation turn: %w", err)
	}
	key := s.key(turn.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

// List returns the last limit turns of sessionID, oldest first.
func (s *RedisStore) List(ctx context.Context, sessionID string, limit int) ([]*models.ConversationTurn, error) {
	if limit <= 0 {
		return []*models.ConversationTurn{}, nil
	}
	raw, err := s.client.LRange(ctx, s.key(sessionID), int64(-limit), -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	turns := make([]*models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var t models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation turn: %w", err)
		}
		turns = append(turns, &t)
	}
	return turns, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
