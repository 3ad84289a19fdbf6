package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
		"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	temp := 0.2
	return NewOpenAIClient(config.LLMConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/",
		ChatModel:   "gpt-4o-mini",
		Temperature: &temp,
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeCompletion(w, "Paris is the capital of France.")
	})

	answer, err := c.Complete(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", answer)
	}
	if got.Model != "gpt-4o-mini" || got.Temperature != 0.2 {
		t.Errorf("request model=%q temperature=%v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "What is the capital of France?" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if c.Model() != "gpt-4o-mini" {
		t.Errorf("Model = %q", c.Model())
	}
}

func TestOpenAIClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests)
		}},
		{"blank answer", func(w http.ResponseWriter, r *http.Request) {
			writeCompletion(w, "   ")
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Complete(context.Background(), "hi")
			if !errors.Is(err, apperr.ErrGenerationFailed) {
				t.Errorf("err = %v, want generation failed", err)
			}
		})
	}
}

func TestOpenAIClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewOpenAIClient(config.LLMConfig{APIKey: "k", BaseURL: url + "/", ChatModel: "m"})
	if _, err := c.Complete(context.Background(), "hi"); !errors.Is(err, apperr.ErrGenerationFailed) {
		t.Errorf("err = %v, want generation failed", err)
	}
}

func TestOpenAIClient_Canceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "late")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, apperr.ErrGenerationFailed) {
		t.Error("cancellation should not be reported as a generation failure")
	}
}

func TestCompleterFunc(t *testing.T) {
	var c Client = CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return strings.ToUpper(prompt), nil
	})
	out, err := c.Complete(context.Background(), "rag")
	if err != nil || out != "RAG" {
		t.Errorf("Complete = %q, %v", out, err)
	}
}
