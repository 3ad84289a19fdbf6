package llm

import (
	"context"
	"errors"
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

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// Option configures an OpenAIClient.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	request []option.RequestOption
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRequestOptions appends raw client options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.request = append(o.request, opts...) }
}

// NewOpenAIClient builds a chat client from cfg.
func NewOpenAIClient(cfg config.LLMConfig, opts ...Option) *OpenAIClient {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	reqOpts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSeconds > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	reqOpts = append(reqOpts, o.request...)
	return &OpenAIClient{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.ChatModel,
		temperature: cfg.TemperatureOrDefault(),
		logger:      utils.OrNop(o.logger),
	}
}

// Complete sends prompt as a single user message and returns the first choice. Transport
// failures, refusals and blank answers are apperr.ErrGenerationFailed.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "llm.OpenAI.Complete"
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return "", apperr.GenerationFailed(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.GenerationFailed(op, errors.New("no choices in response"))
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", apperr.GenerationFailed(op, fmt.Errorf("model refused: %s", msg.Refusal))
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", apperr.GenerationFailed(op, errors.New("empty completion"))
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("took", time.Since(start)))
	return msg.Content, nil
}

// Model returns the configured chat model name.
func (c *OpenAIClient) Model() string {
	return c.model
}
