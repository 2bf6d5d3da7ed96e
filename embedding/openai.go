package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openaiDimension = 1536

// OpenAIClient produces embeddings via the OpenAI API using
// text-embedding-3-small.
type OpenAIClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates an OpenAI embedding client with the given API key.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIClient{
		client:     openai.NewClient(apiKey),
		model:      openai.SmallEmbedding3,
		maxRetries: maxRetries,
		retryDelay: initialBackoff,
	}, nil
}

// NewOpenAIClientFromEnv creates an OpenAI embedding client from OPENAI_API_KEY.
func NewOpenAIClientFromEnv() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	return NewOpenAIClient(apiKey)
}

// ID identifies the provider and model used to build vectors.
func (c *OpenAIClient) ID() string {
	return fmt.Sprintf("openai:%s:%d", c.model, openaiDimension)
}

// Dimension returns the output dimensionality of text-embedding-3-small.
func (c *OpenAIClient) Dimension() int { return openaiDimension }

// Embed returns an L2-normalized embedding for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	backoff := c.retryDelay
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: c.model,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(resp.Data) == 0 {
			lastErr = errors.New("no embeddings returned")
			continue
		}

		embedding32 := resp.Data[0].Embedding
		vec := make([]float64, len(embedding32))
		for i, v := range embedding32 {
			vec[i] = float64(v)
		}
		if len(vec) != openaiDimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", openaiDimension, len(vec))
		}
		normalize(vec)
		return vec, nil
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.maxRetries, lastErr)
}
