package models

import (
	"testing"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		label  string
		want   Intent
		wantOK bool
	}{
		{"rag", IntentRAG, true},
		{"direct", IntentDirect, true},
		{"  RAG\n", IntentRAG, true},
		{"Direct", IntentDirect, true},
		{"probably rag", IntentRAG, false},
		{"maybe", IntentRAG, false},
		{"", IntentRAG, false},
		{"'direct'", IntentRAG, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseIntent(tt.label)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseIntent(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{"empty query", ChatRequest{Query: "  ", SessionID: "s1"}, true},
		{"missing session", ChatRequest{Query: "hi"}, true},
		{"valid", ChatRequest{Query: " hi ", SessionID: "s1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.req.Query != "hi" {
				t.Errorf("query not trimmed: %q", tt.req.Query)
			}
		})
	}
}

func TestChatResult_ContextUsed(t *testing.T) {
	r := &ChatResult{}
	if r.ContextUsed() {
		t.Error("empty context should not count as used")
	}
	r.Context = []*RetrievedChunk{{ID: "a", Content: "  "}, nil}
	if r.ContextUsed() {
		t.Error("blank chunks should not count as used")
	}
	r.Context = append(r.Context, &RetrievedChunk{ID: "b", Content: "RAG combines retrieval with generation."})
	if !r.ContextUsed() {
		t.Error("expected context used")
	}
}

func TestNewConversationTurn(t *testing.T) {
	result := &ChatResult{
		Answer:    "4",
		Intent:    IntentDirect,
		SessionID: "s1",
		Context:   []*RetrievedChunk{{Content: "ctx"}, {Content: ""}},
	}
	turn := NewConversationTurn("What is 2+2?", result)
	if turn.SessionID != "s1" || turn.UserMessage != "What is 2+2?" || turn.AssistantMessage != "4" {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if len(turn.RetrievalContext) != 1 || turn.RetrievalContext[0] != "ctx" {
		t.Errorf("retrieval context: got %v", turn.RetrievalContext)
	}
}
