package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
)

// Provider maps text to fixed-length numeric vectors. Implementations must
// be deterministic for identical input under the same ID; the pipeline
// stores the ID alongside the index and forces a rebuild when it changes.
type Provider interface {
	// ID identifies the provider and model version used to build vectors.
	ID() string

	// Dimension returns the length of vectors produced by Embed.
	Dimension() int

	// Embed returns an L2-normalized embedding vector for the given text.
	// It honors the context deadline and returns the context error on
	// timeout or cancellation.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NewProviderFromEnv creates an embedding provider from environment
// variables. EMBEDDING_PROVIDER selects the backend ("gemini" or "openai");
// gemini is the default.
func NewProviderFromEnv() (Provider, error) {
	provider := os.Getenv("EMBEDDING_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGeminiClientFromEnv()
	case "openai":
		return NewOpenAIClientFromEnv()
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}

// normalize scales v to unit length in place so that cosine similarity
// reduces to a dot product at query time. Zero vectors are left untouched.
func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}
