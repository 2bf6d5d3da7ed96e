package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	defaultGeminiModel    = "models/gemini-embedding-001"
	geminiDimension       = 768

	maxRetries     = 3
	initialBackoff = time.Second
)

// GeminiClient calls the Gemini embedding API over HTTP.
type GeminiClient struct {
	endpoint  string
	model     string
	apiKey    string
	dimension int
	client    *http.Client
}

// GeminiConfig configures a GeminiClient. Zero values fall back to defaults.
type GeminiConfig struct {
	Endpoint  string
	Model     string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

// NewGeminiClient creates a Gemini embedding client.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultGeminiEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = geminiDimension
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// NewGeminiClientFromEnv creates a Gemini embedding client from GEMINI_API_KEY.
func NewGeminiClientFromEnv() (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	return NewGeminiClient(GeminiConfig{APIKey: apiKey})
}

// ID identifies the provider and model used to build vectors.
func (c *GeminiClient) ID() string {
	return fmt.Sprintf("gemini:%s:%d", c.model, c.dimension)
}

// Dimension returns the configured output dimensionality.
func (c *GeminiClient) Dimension() int { return c.dimension }

type geminiRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"task_type,omitempty"`
	OutputDimensionality int           `json:"output_dimensionality,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed returns an L2-normalized embedding for the given text. Transient
// failures are retried with exponential backoff; 4xx responses are not.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := geminiRequest{
		Model: c.model,
		Content: geminiContent{
			Parts: []geminiPart{{Text: text}},
		},
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: c.dimension,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp geminiResponse
			err := json.NewDecoder(resp.Body).Decode(&apiResp)
			resp.Body.Close()
			if err != nil {
				lastErr = fmt.Errorf("failed to decode response: %w", err)
				continue
			}
			vec := apiResp.Embedding.Values
			if len(vec) != c.dimension {
				return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dimension, len(vec))
			}
			normalize(vec)
			return vec, nil
		}
		resp.Body.Close()

		// Don't retry on bad request or auth errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("embedding API error: %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("embedding API error: %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", maxRetries, lastErr)
}
