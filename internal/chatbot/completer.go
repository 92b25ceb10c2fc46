// Package chatbot answers support questions through a chat completion model.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gatortrader_backend/internal/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by the completer when no API key is set.
var ErrNotConfigured = errors.New("chat completions are not configured")

// Completer turns a prompt into a reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter sends the prompt as a single user message.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAICompleter builds the completer from config. Without an API key every call fails with ErrNotConfigured.
func NewOpenAICompleter(cfg *config.Config, logger *zap.Logger) *OpenAICompleter {
	c := &OpenAICompleter{model: cfg.OpenAIModel, logger: logger.Named("chatbot")}
	if c.model == "" {
		c.model = openai.GPT3Dot5Turbo
	}
	if cfg.OpenAIAPIKey == "" {
		c.logger.Warn("OPENAI_API_KEY not set; the support chatbot will answer 503.")
		return c
	}
	c.client = openai.NewClient(cfg.OpenAIAPIKey)
	return c
}

// NewOpenAICompleterWithBaseURL points the client at a different API root.
func NewOpenAICompleterWithBaseURL(apiKey, baseURL, model string, logger *zap.Logger) *OpenAICompleter {
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = baseURL
	return &OpenAICompleter{client: openai.NewClientWithConfig(oc), model: model, logger: logger}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
