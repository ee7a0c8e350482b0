package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maestro.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig_Validates(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, 10, config.Conversation.MaxMessages)
	assert.Equal(t, "168h", config.Conversation.TTL)
	assert.Equal(t, 10, config.Assistant.MaxSteps)
	assert.Equal(t, "America/Lima", config.Decision.Timezone)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	t.Setenv("MAESTRO_SERVER_PORT", "")
	t.Setenv("PORT", "")

	base := writeConfig(t, `
[server]
port = 9000
host = "0.0.0.0"

[retrieval]
top_k = 3
`)
	override := writeConfig(t, `
[retrieval]
top_k = 7
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 7, config.Retrieval.TopK)
	assert.Equal(t, 8, config.Retrieval.MaxHits)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromFiles(writeConfig(t, "[server\nport ="))
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("MAESTRO_SERVER_PORT", "7070")
	t.Setenv("MAESTRO_LLM_PROVIDER", "CLAUDE")
	t.Setenv("MAESTRO_SERIALIZE_TURNS", "true")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
	t.Setenv("MAESTRO_LOG_OUTPUT", "stdout, ,file")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.True(t, config.Assistant.SerializeTurns)
	assert.Equal(t, "verify-me", config.WhatsApp.VerifyToken)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)

	ApplyFlagOverrides(config, 9999, "example.com")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "example.com", config.Server.Host)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap not smaller than size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }},
		{"unknown timezone", func(c *Config) { c.Decision.Timezone = "Mars/Olympus" }},
		{"bad duration", func(c *Config) { c.Conversation.TTL = "a week" }},
		{"bad provider", func(c *Config) { c.LLM.DefaultProvider = "openai" }},
		{"zero window size", func(c *Config) { c.Conversation.MaxMessages = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDuration("5m", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
}
