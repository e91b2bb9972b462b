package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

// ChatConfig holds the chat completion endpoint settings.
// BaseURL must already include the /v1 suffix. An empty APIKey is allowed
// for local OpenAI-compatible servers such as vLLM.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Chat generates replies through an OpenAI-compatible chat completions endpoint.
type Chat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewChat creates a chat completion client.
func NewChat(cfg *ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return &Chat{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate sends [system, user] and returns the first choice's trimmed content.
func (c *Chat) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	}

	c.logger.Debug("Sending chat completion",
		zap.String("model", c.model),
		zap.Int("system_len", len(system)),
		zap.String("user", user),
	)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", chatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion without choices: %w", domain.ErrEmptyResult)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completion with empty content: %w", domain.ErrEmptyResult)
	}
	return reply, nil
}

// HealthCheck verifies the endpoint answers ListModels.
func (c *Chat) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func chatError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("chat completion: %w: %w", domain.ErrTransportFailure, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrTransportFailure)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, bodyMessage(reqErr.Body), domain.ErrTransportFailure)
	}
	return fmt.Errorf("chat completion: %v: %w", err, domain.ErrTransportFailure)
}
