package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

type openAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAIProvider(cfg config.LLMConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *openAIProvider) ModelVersion() string { return p.model }

func (p *openAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", &schema.RateLimitedError{Err: err}
		}
		return "", &schema.GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &schema.GenerationError{Err: fmt.Errorf("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}
