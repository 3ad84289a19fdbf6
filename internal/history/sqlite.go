package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	user_message TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	retrieval_context TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id, seq);
`

// SQLiteStore keeps turns in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the conversations table in the database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts turn.
func (s *SQLiteStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	stamp(turn)
	contextJSON, err := json.Marshal(nonNil(turn.RetrievalContext))
	if err != nil {
		return fmt.Errorf("failed to marshal retrieval context: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, session_id, user_message, assistant_message, intent, retrieval_context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.UserMessage, turn.AssistantMessage, string(turn.Intent),
		string(contextJSON), turn.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert conversation turn: %w", err)
	}
	return nil
}

// List returns the newest limit turns of sessionID, oldest first.
func (s *SQLiteStore) List(ctx context.Context, sessionID string, limit int) ([]*models.ConversationTurn, error) {
	if limit <= 0 {
		return []*models.ConversationTurn{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_message, assistant_message, intent, retrieval_context, created_at
		FROM conversations WHERE session_id = ? ORDER BY seq DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	turns := []*models.ConversationTurn{}
	for rows.Next() {
		var (
			t           models.ConversationTurn
			intent      string
			contextJSON string
			createdAt   string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.AssistantMessage, &intent, &contextJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		t.Intent = models.Intent(intent)
		if err := json.Unmarshal([]byte(contextJSON), &t.RetrievalContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal retrieval context: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(turns)
	return turns, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func reverse(turns []*models.ConversationTurn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
