package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Jatin-93/pdf-chatbot/pkg/resilience"
)

// ChatAPI is the slice of the OpenAI client the completion client uses.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompletionClient produces chat completions, guarded by a circuit
// breaker so a dead provider fails fast instead of queueing work.
type CompletionClient struct {
	api     ChatAPI
	model   string
	breaker *resilience.Breaker
}

// NewCompletionClient creates a completion client. A nil breaker gets
// the default one.
func NewCompletionClient(api ChatAPI, model string, breaker *resilience.Breaker) *CompletionClient {
	if model == "" {
		model = DefaultChatModel
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	return &CompletionClient{api: api, model: model, breaker: breaker}
}

// Complete sends a system instruction and a user prompt and returns the
// first choice's text.
func (c *CompletionClient) Complete(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error) {
	var out string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		if out == "" {
			return fmt.Errorf("empty completion")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm: complete: %w", err)
	}
	return out, nil
}
