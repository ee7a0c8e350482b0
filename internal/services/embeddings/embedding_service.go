package embeddings

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/services/llm"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Service implements interfaces.EmbeddingService with the Gemini embedding API
type Service struct {
	config  *common.EmbeddingsConfig
	apiKey  string
	baseURL string
	retry   *llm.RetryConfig
	limiter *rate.Limiter
	logger  arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

// Option configures optional service settings
type Option func(*Service)

// WithBaseURL points the embedding client at another endpoint
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithRetryConfig replaces the default retry behavior
func WithRetryConfig(config *llm.RetryConfig) Option {
	return func(s *Service) {
		s.retry = config
	}
}

// NewService creates a new embedding service
func NewService(config *common.EmbeddingsConfig, apiKey string, logger arbor.ILogger, opts ...Option) *Service {
	limit := rate.Inf
	if interval := common.ParseDuration(config.RateLimit, 0); interval > 0 {
		limit = rate.Every(interval)
	}

	s := &Service{
		config:  config,
		apiKey:  apiKey,
		retry:   llm.NewDefaultRetryConfig(),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) getClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for embeddings (set via GEMINI_API_KEY or gemini.api_key in config)")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	return client, nil
}

// Embed creates a unit-length vector embedding for text
func (s *Service) Embed(ctx context.Context, text string, task interfaces.EmbeddingTask) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	outputDim := int32(s.config.Dimension)
	embeddingConfig := &genai.EmbedContentConfig{
		TaskType:             string(task),
		OutputDimensionality: &outputDim,
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	start := time.Now()
	result, err := llm.Retry(ctx, s.logger, llm.ProviderGemini, s.retry, func() (*genai.EmbedContentResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Models.EmbedContent(ctx, s.config.Model, contents, embeddingConfig)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != s.config.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.Dimension, len(embedding))
	}

	s.logger.Debug().
		Str("task", string(task)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")

	// Truncated gemini-embedding-001 outputs are not normalized
	return Normalize(embedding), nil
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// Normalize scales v to unit length; a zero vector is returned unchanged
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
