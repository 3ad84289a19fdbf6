// Package orchestrator runs one query through classification, optional retrieval and generation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// State is a step of an orchestration run.
type State int

const (
	StateStart State = iota
	StateClassifying
	StateRetrieving
	StateGenerating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateClassifying:
		return "classifying"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Classifier routes a query.
type Classifier interface {
	Classify(ctx context.Context, query string) models.Intent
}

// Retriever fetches context for a query. It absorbs unavailable backends itself and
// returns only errors that should abort the run.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]*models.RetrievedChunk, error)
}

// Generator produces the answer.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []*models.RetrievedChunk) (string, error)
}

// Orchestrator wires the three steps together. It holds no per-run state, so one
// Orchestrator serves concurrent runs.
type Orchestrator struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	topK       int
	logger     *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTopK sets the number of chunks to retrieve; 0 uses the retriever's default.
func WithTopK(k int) Option {
	return func(o *Orchestrator) { o.topK = k }
}

// New returns an orchestrator over the given steps.
func New(classifier Classifier, retriever Retriever, generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{classifier: classifier, retriever: retriever, generator: generator}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = utils.OrNop(o.logger)
	return o
}

// runState is the record carried between states of a single run.
type runState struct {
	query     string
	sessionID string
	intent    models.Intent
	context   []*models.RetrievedChunk
	answer    string
	trace     []State
}

// Run answers query. rag queries go START, CLASSIFYING, RETRIEVING, GENERATING, DONE;
// direct queries skip RETRIEVING. A generation error, or a retrieval error the retriever
// did not absorb, aborts the run with no result.
func (o *Orchestrator) Run(ctx context.Context, query, sessionID string) (*models.ChatResult, error) {
	start := time.Now()
	rs := &runState{query: query, sessionID: sessionID}
	state := StateStart

	for state != StateDone {
		rs.trace = append(rs.trace, state)
		switch state {
		case StateStart:
			state = StateClassifying

		case StateClassifying:
			rs.intent = o.classifier.Classify(ctx, rs.query)
			if rs.intent == models.IntentDirect {
				state = StateGenerating
			} else {
				rs.intent = models.IntentRAG
				state = StateRetrieving
			}

		case StateRetrieving:
			chunks, err := o.retriever.Retrieve(ctx, rs.query, o.topK)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: %w", err)
			}
			rs.context = chunks
			state = StateGenerating

		case StateGenerating:
			answer, err := o.generator.Generate(ctx, rs.query, rs.context)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: %w", err)
			}
			rs.answer = answer
			state = StateDone

		default:
			return nil, fmt.Errorf("orchestrator: unexpected state %v", state)
		}
	}
	rs.trace = append(rs.trace, StateDone)

	result := &models.ChatResult{
		Answer:    rs.answer,
		Intent:    rs.intent,
		Context:   rs.context,
		SessionID: rs.sessionID,
		Trace:     traceNames(rs.trace),
	}
	if result.Context == nil {
		result.Context = []*models.RetrievedChunk{}
	}
	o.logger.Debug("Run complete",
		zap.String("session_id", sessionID),
		zap.String("intent", string(rs.intent)),
		zap.Int("context_chunks", len(rs.context)),
		zap.Strings("trace", result.Trace),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

func traceNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.String()
	}
	return out
}
