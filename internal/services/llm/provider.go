package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ErrStepLimit is returned when the tool loop ends without final text
var ErrStepLimit = errors.New("tool loop reached its step limit without a final answer")

// ProviderFactory creates provider clients on demand and routes generation
// and classification calls to Gemini or Claude by model name.
// It implements interfaces.GenerationOracle and interfaces.ClassificationOracle.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger
	retry        *RetryConfig

	geminiBaseURL string
	claudeBaseURL string

	mu            sync.Mutex
	geminiClient  *genai.Client
	claudeClient  *anthropic.Client
	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
}

// FactoryOption configures optional factory settings
type FactoryOption func(*ProviderFactory)

// WithGeminiBaseURL points the Gemini client at another endpoint
func WithGeminiBaseURL(baseURL string) FactoryOption {
	return func(f *ProviderFactory) {
		f.geminiBaseURL = baseURL
	}
}

// WithClaudeBaseURL points the Claude client at another endpoint
func WithClaudeBaseURL(baseURL string) FactoryOption {
	return func(f *ProviderFactory) {
		f.claudeBaseURL = baseURL
	}
}

// WithRetryConfig replaces the default retry behavior
func WithRetryConfig(config *RetryConfig) FactoryOption {
	return func(f *ProviderFactory) {
		f.retry = config
	}
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
	opts ...FactoryOption,
) *ProviderFactory {
	f := &ProviderFactory{
		geminiConfig:  geminiConfig,
		claudeConfig:  claudeConfig,
		llmConfig:     llmConfig,
		logger:        logger,
		retry:         NewDefaultRetryConfig(),
		geminiLimiter: newLimiter(geminiConfig.RateLimit),
		claudeLimiter: newLimiter(claudeConfig.RateLimit),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// newLimiter allows one call per interval; an empty or invalid interval disables limiting
func newLimiter(interval string) *rate.Limiter {
	d := common.ParseDuration(interval, 0)
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-4-5" -> Claude
// - "claude/claude-haiku-4-5" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	default:
		return f.geminiConfig.Model
	}
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	if f.geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via GEMINI_API_KEY, MAESTRO_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  f.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if f.geminiBaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: f.geminiBaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient(ctx context.Context) (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	if f.claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set via ANTHROPIC_API_KEY, MAESTRO_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	// Retries are handled by Retry
	opts := []option.RequestOption{
		option.WithAPIKey(f.claudeConfig.APIKey),
		option.WithMaxRetries(0),
	}
	if f.claudeBaseURL != "" {
		opts = append(opts, option.WithBaseURL(f.claudeBaseURL))
	}

	client := anthropic.NewClient(opts...)
	f.claudeClient = &client
	return f.claudeClient, nil
}

// Generate runs the tool loop on the provider selected by the request or generation model
func (f *ProviderFactory) Generate(ctx context.Context, request *interfaces.GenerationRequest) (*interfaces.GenerationResult, error) {
	requested := request.Model
	if requested == "" {
		requested = f.llmConfig.GenerationModel
	}
	provider := f.DetectProvider(requested)
	model := f.NormalizeModel(requested)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	maxSteps := request.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	start := time.Now()
	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Int("tools", len(request.Tools)).
		Int("max_steps", maxSteps).
		Msg("Generating content with provider")

	var (
		result *interfaces.GenerationResult
		err    error
	)
	switch provider {
	case ProviderClaude:
		result, err = f.generateWithClaude(ctx, request, model, maxSteps)
	default:
		result, err = f.generateWithGemini(ctx, request, model, maxSteps)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Str("provider", string(result.Provider)).
		Int("steps", result.Steps).
		Int("tool_calls", result.ToolCalls).
		Dur("duration", time.Since(start)).
		Msg("Generation complete")

	return result, nil
}

// Classify asks the classification model for exactly one of labels
func (f *ProviderFactory) Classify(ctx context.Context, prompt string, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("labels cannot be empty")
	}

	provider := f.DetectProvider(f.llmConfig.ClassificationModel)
	model := f.NormalizeModel(f.llmConfig.ClassificationModel)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	var (
		label string
		err   error
	)
	switch provider {
	case ProviderClaude:
		label, err = f.classifyWithClaude(ctx, prompt, labels, model)
	default:
		label, err = f.classifyWithGemini(ctx, prompt, labels, model)
	}
	if err != nil {
		return "", err
	}

	label = strings.TrimSpace(label)
	for _, allowed := range labels {
		if label == allowed {
			return label, nil
		}
	}
	return "", fmt.Errorf("classifier returned unexpected label %q", label)
}

// Close releases provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}

// convertToGenaiSchema converts a map[string]interface{} representation of a JSON schema
// to a genai.Schema structure. Tool parameters are declared this way so one definition
// serves both providers.
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enumVals, ok := schemaMap["enum"].([]interface{}); ok {
		for _, v := range enumVals {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	schema.Required = requiredFields(schemaMap)

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			propMap, ok := propVal.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("property '%s' is not a schema object", propName)
			}
			propSchema, err := convertToGenaiSchema(propMap)
			if err != nil {
				return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
			}
			schema.Properties[propName] = propSchema
		}
	}

	return schema, nil
}
