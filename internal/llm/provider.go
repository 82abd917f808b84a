package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// Config holds the response-generator configuration.
type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	MaxRetries int
	Timeout    time.Duration
}

// Delta is one unit of a streaming reply. A terminal failure is delivered as
// the final delta with Err set.
type Delta struct {
	Content string
	Err     error
}

// Provider generates chat completions against a hosted Azure OpenAI
// deployment.
type Provider struct {
	client     *openai.Client
	deployment string
	maxRetries int
	logger     *zap.Logger
}

// NewProvider creates a provider. Returns domain.ErrNotConfigured when the
// endpoint, key, or deployment is missing; callers keep running and fail
// individual chat requests at first use.
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" {
		return nil, fmt.Errorf("%w: generator endpoint, api key and deployment are required", domain.ErrNotConfigured)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		clientConfig.APIVersion = cfg.APIVersion
	}
	deployment := cfg.Deployment
	clientConfig.AzureModelMapperFunc = func(model string) string {
		return deployment
	}

	return &Provider{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: deployment,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Chat performs a buffered chat completion.
func (p *Provider) Chat(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    p.deployment,
			Messages: toOpenAI(systemPrompt, messages),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	return result, nil
}

// Stream performs a streaming chat completion, delivering content deltas on
// the returned channel as the model produces them. The channel is closed
// after the final delta.
func (p *Provider) Stream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (<-chan Delta, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    p.deployment,
		Messages: toOpenAI(systemPrompt, messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start chat stream: %w", err)
	}

	ch := make(chan Delta, 64)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				ch <- Delta{Err: fmt.Errorf("chat stream failed: %w", err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if content := resp.Choices[0].Delta.Content; content != "" {
				ch <- Delta{Content: content}
			}
		}
	}()

	return ch, nil
}

func toOpenAI(systemPrompt string, messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.maxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				p.logger.Debug("generator request failed, retrying",
					zap.Int("attempt", attempt+1),
					zap.Duration("wait_time", waitTime),
					zap.Error(err))
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
