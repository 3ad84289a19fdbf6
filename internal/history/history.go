// Package history persists conversation turns per session.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// Store records conversation turns.
type Store interface {
	// Append stores turn, assigning ID and CreatedAt when they are empty.
	Append(ctx context.Context, turn *models.ConversationTurn) error
	// List returns the newest limit turns of a session in chronological order.
	List(ctx context.Context, sessionID string, limit int) ([]*models.ConversationTurn, error)
	Close() error
}

func stamp(turn *models.ConversationTurn) {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
}

// NopStore discards turns. Used when history is disabled.
type NopStore struct{}

func (NopStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	stamp(turn)
	return nil
}

func (NopStore) List(ctx context.Context, sessionID string, limit int) ([]*models.ConversationTurn, error) {
	return []*models.ConversationTurn{}, nil
}

func (NopStore) Close() error { return nil }
