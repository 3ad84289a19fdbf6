package models

import (
	"fmt"
	"strings"
)

// Intent is the routing decision for a query.
type Intent string

const (
	// IntentRAG routes the query through retrieval before generation.
	IntentRAG Intent = "rag"
	// IntentDirect answers without retrieval.
	IntentDirect Intent = "direct"
)

// ParseIntent maps a raw classifier label to an Intent. Only an exact "rag" or "direct"
// (after trimming and lower-casing) is recognised; everything else falls back to IntentRAG.
func ParseIntent(label string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentRAG:
		return IntentRAG, true
	case IntentDirect:
		return IntentDirect, true
	default:
		return IntentRAG, false
	}
}

// ChatRequest is a query bound to a conversation session.
type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Validate checks that both query and session id are present.
func (r *ChatRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// ChatResult is the outcome of one orchestration run.
type ChatResult struct {
	Answer    string            `json:"response"`
	Intent    Intent            `json:"intent"`
	Context   []*RetrievedChunk `json:"sources"`
	SessionID string            `json:"session_id"`
	Trace     []string          `json:"-"`
}

// ContextUsed reports whether any retrieved chunk carried content into generation.
func (r *ChatResult) ContextUsed() bool {
	return HasContent(r.Context)
}

// HasContent reports whether at least one chunk has non-blank content.
func HasContent(chunks []*RetrievedChunk) bool {
	for _, c := range chunks {
		if c != nil && strings.TrimSpace(c.Content) != "" {
			return true
		}
	}
	return false
}
