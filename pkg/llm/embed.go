package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// EmbeddingsAPI is the slice of the OpenAI client the embed client uses.
type EmbeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// EmbedClient turns text into fixed-dimension vectors. Safe for
// concurrent use; outbound calls share a token-bucket rate limit.
type EmbedClient struct {
	api     EmbeddingsAPI
	model   string
	dims    int
	limiter *rate.Limiter
}

// NewEmbedClient creates an embedding client. rps bounds requests per
// second across all goroutines; dims is the expected vector width, 0 to
// skip the check.
func NewEmbedClient(api EmbeddingsAPI, model string, dims int, rps float64) *EmbedClient {
	if model == "" {
		model = DefaultEmbedModel
	}
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &EmbedClient{
		api:     api,
		model:   model,
		dims:    dims,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Dims returns the configured vector width.
func (c *EmbedClient) Dims() int { return c.dims }

// Embed returns the vector for a single text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: embed rate wait: %w", err)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("llm: embed: empty response")
	}

	vec := resp.Data[0].Embedding
	if c.dims > 0 && len(vec) != c.dims {
		return nil, fmt.Errorf("llm: embed: got %d dims, want %d", len(vec), c.dims)
	}
	return vec, nil
}
