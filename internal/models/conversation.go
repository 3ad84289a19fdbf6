package models

import "time"

// ConversationTurn is one persisted exchange in a session.
type ConversationTurn struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	Intent           Intent    `json:"intent"`
	RetrievalContext []string  `json:"retrieval_context,omitempty"`
	CreatedAt        time.Time `json:"timestamp"`
}

// NewConversationTurn builds a turn from a finished chat run. Turn ID and timestamp are
// assigned by the history store.
func NewConversationTurn(query string, result *ChatResult) *ConversationTurn {
	turn := &ConversationTurn{
		SessionID:        result.SessionID,
		UserMessage:      query,
		AssistantMessage: result.Answer,
		Intent:           result.Intent,
	}
	for _, c := range result.Context {
		if c != nil && c.Content != "" {
			turn.RetrievalContext = append(turn.RetrievalContext, c.Content)
		}
	}
	return turn
}
