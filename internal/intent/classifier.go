// Package intent decides whether a query needs document retrieval.
package intent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/llm"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

const classifyPrompt = `Classify the user's intent for the following query.
Choose one of: 'rag' (needs context retrieval), 'direct' (can answer directly).

Query: %s

Intent (respond with just 'rag' or 'direct'):`

// Classifier routes queries with a language model.
type Classifier struct {
	llm    llm.Client
	logger *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// NewClassifier returns a classifier backed by client.
func NewClassifier(client llm.Client, opts ...Option) *Classifier {
	c := &Classifier{llm: client}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Prompt returns the classification prompt for query.
func Prompt(query string) string {
	return fmt.Sprintf(classifyPrompt, query)
}

// Classify returns IntentDirect only when the model answers exactly "direct" (ignoring case
// and surrounding whitespace). Model errors and any other answer route to IntentRAG.
func (c *Classifier) Classify(ctx context.Context, query string) models.Intent {
	out, err := c.llm.Complete(ctx, Prompt(query))
	if err != nil {
		c.logger.Warn("Intent classification failed, defaulting to rag", zap.Error(err))
		return models.IntentRAG
	}
	intent, ok := models.ParseIntent(out)
	if !ok {
		c.logger.Debug("Unrecognized intent label, defaulting to rag", zap.String("label", utils.Truncate(out, 80)))
	}
	return intent
}
