package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"dealscope/internal/metrics"
	"dealscope/pkg/errors"
	"dealscope/pkg/logger"
)

// Ensure OpenAIProvider implements ChatProvider
var _ ChatProvider = (*OpenAIProvider)(nil)

// OpenAIProvider implements ChatProvider using the official OpenAI Go SDK.
// A custom base URL makes it work against Azure OpenAI and other
// OpenAI-compatible endpoints.
type OpenAIProvider struct {
	client      openai.Client // NewClient returns Client (not *Client)
	model       string
	timeout     time.Duration
	rateLimiter RateLimiter
	log         *logger.Logger
}

// OpenAIConfig configures the provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional: Azure-compatible endpoint
	Model        string
	Timeout      time.Duration
	ReqPerMinute float64
}

// NewOpenAIProvider creates a chat provider backed by the official SDK.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	var limiter RateLimiter = NewNoOpLimiter()
	if cfg.ReqPerMinute > 0 {
		limiter = NewTokenBucketLimiter("openai", cfg.ReqPerMinute, 0)
	}

	return &OpenAIProvider{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		rateLimiter: limiter,
		log:         logger.Get().With("component", "openai_provider", "model", cfg.Model),
	}, nil
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Chat sends a chat completion request via the official SDK.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrRateLimitExceeded, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	started := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.RecordLLMCall(p.Name(), model, time.Since(started), 0, 0, err)
		return nil, errors.Wrap(err, "openai chat completion failed")
	}
	metrics.RecordLLMCall(p.Name(), model, time.Since(started),
		int(completion.Usage.PromptTokens), int(completion.Usage.CompletionTokens), nil)

	if len(completion.Choices) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyCompletion, "model %s", model)
	}

	p.log.Debugw("Chat completion",
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)

	return &ChatResponse{
		ID:      completion.ID,
		Model:   completion.Model,
		Content: completion.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}
