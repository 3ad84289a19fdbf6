package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	logger  *zap.Logger
	request []option.RequestOption
}

// WithLogger sets a logger for debug output (batch sizes, latencies).
func WithLogger(l *zap.Logger) OpenAIOption {
	return func(o *openAIOptions) { o.logger = l }
}

// WithRequestOptions appends raw client options (base URL, HTTP client, headers).
func WithRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(o *openAIOptions) { o.request = append(o.request, opts...) }
}

// NewOpenAIEmbedder builds an embedder from the embedding settings. The API key and base URL
// are shared with the chat model settings. Retries default to zero: retry policy belongs to
// the caller.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, llm config.LLMConfig, opts ...OpenAIOption) *OpenAIEmbedder {
	o := &openAIOptions{}
	for _, opt := range opts {
		opt(o)
	}
	reqOpts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if llm.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(llm.APIKey))
	}
	if llm.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(llm.BaseURL))
	}
	if llm.TimeoutSeconds > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(time.Duration(llm.TimeoutSeconds)*time.Second))
	}
	reqOpts = append(reqOpts, o.request...)
	return &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     utils.OrNop(o.logger),
	}
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request. Results are placed by the response index so
// output order always matches input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "embedding.OpenAI.EmbedBatch"
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	// Only the text-embedding-3 family accepts a dimensions parameter.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return nil, apperr.EmbeddingUnavailable(op, err)
	}
	e.logger.Debug("embedded batch",
		zap.Int("texts", len(texts)),
		zap.Duration("took", time.Since(start)))

	if len(resp.Data) != len(texts) {
		return nil, apperr.EmbeddingUnavailable(op, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(texts) || out[idx] != nil {
			return nil, apperr.EmbeddingUnavailable(op, fmt.Errorf("invalid or duplicate embedding index %d", idx))
		}
		if len(d.Embedding) != e.dimensions {
			return nil, apperr.ConfigurationError(op, "model %s returned %d dimensions, expected %d", e.model, len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		if utils.IsZero(vec) {
			return nil, apperr.EmbeddingUnavailable(op, fmt.Errorf("zero vector for input %d", idx))
		}
		out[idx] = vec
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
