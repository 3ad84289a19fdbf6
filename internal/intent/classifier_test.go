package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// stubLLM returns a fixed reply and records the prompts it was given.
type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func TestClassify_Labels(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  models.Intent
	}{
		{"rag", "rag", models.IntentRAG},
		{"direct", "direct", models.IntentDirect},
		{"upper case folds", "RAG", models.IntentRAG},
		{"whitespace and case", "  Direct\n", models.IntentDirect},
		{"hedged answer falls back", "probably rag", models.IntentRAG},
		{"sentence falls back", "direct, I think", models.IntentRAG},
		{"empty falls back", "", models.IntentRAG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.label}
			got := NewClassifier(llm).Classify(context.Background(), "What is 2+2?")
			if got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
			if len(llm.prompts) != 1 || llm.prompts[0] != Prompt("What is 2+2?") {
				t.Errorf("prompts = %q", llm.prompts)
			}
		})
	}
}

func TestClassify_LLMErrorDefaultsToRAG(t *testing.T) {
	llm := &stubLLM{err: apperr.GenerationFailed("test", errors.New("timeout"))}
	got := NewClassifier(llm).Classify(context.Background(), "Summarize the onboarding guide")
	if got != models.IntentRAG {
		t.Errorf("Classify = %q, want rag", got)
	}
	if len(llm.prompts) != 1 {
		t.Errorf("LLM called %d times, want 1", len(llm.prompts))
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("hello there")
	for _, want := range []string{
		"Query: hello there",
		"'rag' (needs context retrieval)",
		"respond with just 'rag' or 'direct'",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}
