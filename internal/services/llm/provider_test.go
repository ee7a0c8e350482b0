package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"google.golang.org/genai"
)

func newTestFactory(defaultProvider common.LLMProvider, opts ...FactoryOption) *ProviderFactory {
	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = defaultProvider
	config.Gemini.APIKey = "test-gemini-key"
	config.Gemini.RateLimit = ""
	config.Claude.APIKey = "test-claude-key"
	config.Claude.RateLimit = ""

	opts = append([]FactoryOption{WithRetryConfig(&RetryConfig{MaxRetries: 0})}, opts...)
	return NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, arbor.NewLogger(), opts...)
}

func TestDetectProvider(t *testing.T) {
	factory := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"", ProviderGemini},
		{"claude-haiku-4-5", ProviderClaude},
		{"anthropic/claude-sonnet-4-5", ProviderClaude},
		{"gemini-2.5-pro", ProviderGemini},
		{"google/gemini-2.5-flash", ProviderGemini},
		{"something-else", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, factory.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, ProviderClaude, newTestFactory(common.LLMProviderClaude).DetectProvider(""))
}

func TestNormalizeModel(t *testing.T) {
	factory := newTestFactory(common.LLMProviderGemini)
	assert.Equal(t, "claude-haiku-4-5", factory.NormalizeModel("claude/claude-haiku-4-5"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("Google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini-2.5-flash"))
}

func TestMissingAPIKey(t *testing.T) {
	config := common.NewDefaultConfig()
	factory := NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, arbor.NewLogger())

	_, err := factory.GetGeminiClient(context.Background())
	assert.ErrorContains(t, err, "Gemini API key is required")

	_, err = factory.GetClaudeClient(context.Background())
	assert.ErrorContains(t, err, "Anthropic API key is required")
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"queries": map[string]interface{}{
				"type":        "array",
				"description": "Search phrases",
				"items":       map[string]interface{}{"type": "string"},
			},
		},
		"required": []string{"queries"},
	})
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"queries"}, schema.Required)
	require.Contains(t, schema.Properties, "queries")
	assert.Equal(t, genai.TypeArray, schema.Properties["queries"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["queries"].Items.Type)

	empty, err := convertToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = convertToGenaiSchema(map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"bad": "string"},
	})
	assert.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	contents, err := convertMessagesToGemini([]interfaces.OracleMessage{
		{Role: models.RoleUser, Text: "hola"},
		{Role: models.RoleAssistant, Text: "¿en qué te ayudo?"},
		{Role: models.RoleUser, Text: "mira", Image: &models.Media{Data: []byte{1, 2}, MIMEType: "image/jpeg"}},
		{Role: models.RoleUser},
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "image/jpeg", contents[2].Parts[1].InlineData.MIMEType)

	_, err = convertMessagesToGemini(nil)
	assert.Error(t, err)
}

func TestConvertMessagesToClaude(t *testing.T) {
	messages, err := convertMessagesToClaude([]interfaces.OracleMessage{
		{Role: models.RoleAssistant, Text: "orphan reply"},
		{Role: models.RoleUser, Text: "I have a rash"},
		{Role: models.RoleUser, Text: "Is it serious?"},
		{Role: models.RoleAssistant, Text: "It depends"},
		{Role: models.RoleUser, Image: &models.Media{Data: []byte("img"), MIMEType: "image/png"}},
	})
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "user", string(messages[0].Role))
	assert.Len(t, messages[0].Content, 2)
	assert.Equal(t, "assistant", string(messages[1].Role))
	assert.Equal(t, "user", string(messages[2].Role))
	require.Len(t, messages[2].Content, 1)
	assert.NotNil(t, messages[2].Content[0].OfImage)

	_, err = convertMessagesToClaude([]interfaces.OracleMessage{{Role: models.RoleAssistant, Text: "only"}})
	assert.Error(t, err)
}

func TestClassifyRejectsEmptyLabels(t *testing.T) {
	_, err := newTestFactory(common.LLMProviderGemini).Classify(context.Background(), "prompt", nil)
	assert.Error(t, err)
}
