package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

type stubClassifier struct {
	intent  models.Intent
	queries []string
}

func (s *stubClassifier) Classify(ctx context.Context, query string) models.Intent {
	s.queries = append(s.queries, query)
	return s.intent
}

type retrieveCall struct {
	query string
	topK  int
}

type stubRetriever struct {
	chunks []*models.RetrievedChunk
	err    error
	calls  []retrieveCall
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]*models.RetrievedChunk, error) {
	s.calls = append(s.calls, retrieveCall{query, topK})
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

type stubGenerator struct {
	answer string
	err    error
	calls  int
	chunks []*models.RetrievedChunk
}

func (s *stubGenerator) Generate(ctx context.Context, query string, chunks []*models.RetrievedChunk) (string, error) {
	s.calls++
	s.chunks = chunks
	return s.answer, s.err
}

func TestRun_RAGPath(t *testing.T) {
	chunks := []*models.RetrievedChunk{{ID: "c1", Content: "context", Similarity: 0.8}}
	c := &stubClassifier{intent: models.IntentRAG}
	r := &stubRetriever{chunks: chunks}
	g := &stubGenerator{answer: "answer"}

	res, err := New(c, r, g, WithTopK(3)).Run(context.Background(), "q", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != "answer" || res.Intent != models.IntentRAG || res.SessionID != "s1" {
		t.Errorf("result = %+v", res)
	}
	if !reflect.DeepEqual(res.Context, chunks) || !res.ContextUsed() {
		t.Errorf("context = %v", res.Context)
	}
	if want := []string{"start", "classifying", "retrieving", "generating", "done"}; !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v, want %v", res.Trace, want)
	}
	if len(r.calls) != 1 || r.calls[0] != (retrieveCall{"q", 3}) {
		t.Errorf("Retrieve calls = %v", r.calls)
	}
	if !reflect.DeepEqual(g.chunks, chunks) {
		t.Errorf("generator got %v", g.chunks)
	}
}

func TestRun_DirectPathSkipsRetrieval(t *testing.T) {
	r := &stubRetriever{}
	g := &stubGenerator{answer: "hello!"}

	res, err := New(&stubClassifier{intent: models.IntentDirect}, r, g).Run(context.Background(), "hi", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != models.IntentDirect {
		t.Errorf("intent = %q", res.Intent)
	}
	if res.Context == nil || len(res.Context) != 0 || res.ContextUsed() {
		t.Errorf("context = %#v", res.Context)
	}
	if want := []string{"start", "classifying", "generating", "done"}; !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v, want %v", res.Trace, want)
	}
	if len(r.calls) != 0 {
		t.Error("retriever called on the direct path")
	}
	if g.chunks != nil {
		t.Errorf("generator got chunks %v, want nil", g.chunks)
	}
}

func TestRun_UnknownIntentTreatedAsRAG(t *testing.T) {
	r := &stubRetriever{chunks: []*models.RetrievedChunk{}}

	res, err := New(&stubClassifier{intent: "weird"}, r, &stubGenerator{answer: "a"}).Run(context.Background(), "q", "s")
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != models.IntentRAG {
		t.Errorf("intent = %q, want rag", res.Intent)
	}
	if len(r.calls) != 1 || r.calls[0] != (retrieveCall{"q", 0}) {
		t.Errorf("Retrieve calls = %v", r.calls)
	}
}

func TestRun_GenerationFailureAborts(t *testing.T) {
	g := &stubGenerator{err: apperr.GenerationFailed("llm", errors.New("503"))}

	res, err := New(&stubClassifier{intent: models.IntentDirect}, &stubRetriever{}, g).Run(context.Background(), "q", "s")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, apperr.ErrGenerationFailed) {
		t.Errorf("err = %v, want generation failed", err)
	}
}

func TestRun_RetrievalErrorAborts(t *testing.T) {
	r := &stubRetriever{err: apperr.ConfigurationError("vector", "dimension mismatch")}
	g := &stubGenerator{}

	res, err := New(&stubClassifier{intent: models.IntentRAG}, r, g).Run(context.Background(), "q", "s")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
	if g.calls != 0 {
		t.Error("generator called after retrieval failed")
	}
}

func TestState_String(t *testing.T) {
	if got := StateRetrieving.String(); got != "retrieving" {
		t.Errorf("StateRetrieving = %q", got)
	}
	if got := State(42).String(); got != "state(42)" {
		t.Errorf("State(42) = %q", got)
	}
}
