// Package generator produces the final answer, grounded in retrieved context when there is any.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/llm"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const groundedPrompt = `You are a helpful AI assistant. Answer the user's question based on the provided context. If the context doesn't contain relevant information, use your general knowledge but mention that.

Context:
%s

User Question: %s

Answer:`

const directPrompt = `You are a helpful AI assistant. Answer the user's question naturally and conversationally.

User Question: %s

Answer:`

// Generator answers queries with a language model.
type Generator struct {
	llm    llm.Client
	logger *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator returns a generator backed by client.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{llm: client}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// BuildPrompt returns the grounded prompt when any chunk has content, else the direct prompt.
// Chunks with blank content are left out.
func BuildPrompt(query string, chunks []*models.RetrievedChunk) string {
	var parts []string
	for _, c := range chunks {
		if c != nil && strings.TrimSpace(c.Content) != "" {
			parts = append(parts, c.Content)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf(directPrompt, query)
	}
	return fmt.Sprintf(groundedPrompt, strings.Join(parts, "\n\n"), query)
}

// Generate returns the model's answer. A model failure or a blank answer is
// apperr.ErrGenerationFailed; cancellation is returned as the context error.
func (g *Generator) Generate(ctx context.Context, query string, chunks []*models.RetrievedChunk) (string, error) {
	const op = "generator.Generate"
	prompt := BuildPrompt(query, chunks)
	answer, err := g.llm.Complete(ctx, prompt)
	switch {
	case err != nil && (ctx.Err() != nil || apperr.Is(err, apperr.ErrGenerationFailed)):
		return "", fmt.Errorf("%s: %w", op, err)
	case err != nil:
		return "", apperr.GenerationFailed(op, err)
	case strings.TrimSpace(answer) == "":
		return "", apperr.GenerationFailed(op, errors.New("empty answer"))
	}
	g.logger.Debug("Generated answer",
		zap.Bool("grounded", models.HasContent(chunks)),
		zap.Int("prompt_len", len(prompt)))
	return strings.TrimSpace(answer), nil
}
