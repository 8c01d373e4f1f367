// Package llm wraps the OpenAI API behind small clients for embeddings
// and chat completions.
package llm

import openai "github.com/sashabaranov/go-openai"

const (
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultChatModel  = "gpt-4o-mini"
	DefaultEmbedDims  = 1536
)

// NewOpenAI builds the underlying OpenAI client, honoring an optional
// base URL override for proxies and compatible endpoints.
func NewOpenAI(apiKey, baseURL string) *openai.Client {
	if baseURL == "" {
		return openai.NewClient(apiKey)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}
