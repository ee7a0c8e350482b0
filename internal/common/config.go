package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Storage      StorageConfig      `toml:"storage"`
	Logging      LoggingConfig      `toml:"logging"`
	Conversation ConversationConfig `toml:"conversation"`
	Retrieval    RetrievalConfig    `toml:"retrieval"`
	Decision     DecisionConfig     `toml:"decision"`
	Assistant    AssistantConfig    `toml:"assistant"`
	LLM          LLMConfig          `toml:"llm"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Claude       ClaudeConfig       `toml:"claude"`
	Embeddings   EmbeddingsConfig   `toml:"embeddings"`
	WhatsApp     WhatsAppConfig     `toml:"whatsapp"`
	Ingest       IngestConfig       `toml:"ingest"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	InMemory       bool   `toml:"in_memory"`        // Run without a data directory (tests, ask command)
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                             // "stdout", "file"
}

// ConversationConfig bounds the stored history per conversation identity
type ConversationConfig struct {
	MaxMessages int    `toml:"max_messages" validate:"min=1"` // Window size (default: 10)
	TTL         string `toml:"ttl"`                           // Inactivity expiry as duration string (default: "168h")
	KeyPrefix   string `toml:"key_prefix"`                    // Storage key prefix (default: "conversation:")
}

// RetrievalConfig controls the knowledge search pipeline
type RetrievalConfig struct {
	TopK        int `toml:"top_k" validate:"min=1"`       // Hits per query (default: 5)
	MaxHits     int `toml:"max_hits" validate:"min=1"`    // Hits kept after merge and rank (default: 8)
	Concurrency int `toml:"concurrency" validate:"min=1"` // Parallel lookups per retrieval (default: 8)
}

// DecisionConfig controls the turn-completion decision engine
type DecisionConfig struct {
	Window           string `toml:"window"`                       // Recent history window (default: "5m")
	MaxHistory       int    `toml:"max_history" validate:"min=1"` // Messages shown to the classifier (default: 10)
	QuestionFastPath bool   `toml:"question_fast_path"`           // Answer obvious questions without a classifier call
	Timezone         string `toml:"timezone"`                     // IANA zone for time-of-day annotations (default: "America/Lima")
	Timeout          string `toml:"timeout"`                      // Classifier call timeout (default: "20s")
}

// AssistantConfig controls the response assembler
type AssistantConfig struct {
	MaxSteps       int    `toml:"max_steps" validate:"min=1"` // Tool-loop step bound (default: 10)
	SerializeTurns bool   `toml:"serialize_turns"`            // Serialize turns per conversation identity
	FallbackReply  string `toml:"fallback_reply"`             // Sent when generation fails (empty disables)
	Timeout        string `toml:"timeout"`                    // Generation timeout (default: "2m")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider     LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // Default provider: "gemini" or "claude"
	GenerationModel     string      `toml:"generation_model"`                                // Model for replies (empty: provider default)
	ClassificationModel string      `toml:"classification_model"`                            // Model for turn decisions (empty: provider default)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-2.5-flash")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "100ms")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.4)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "100ms")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.4)
}

// EmbeddingsConfig contains embedding model configuration
type EmbeddingsConfig struct {
	Model     string `toml:"model"`                      // Embedding model (default: "gemini-embedding-001")
	Dimension int    `toml:"dimension" validate:"min=1"` // Output dimensionality (default: 768)
	RateLimit string `toml:"rate_limit"`                 // Minimum interval between calls (default: "50ms")
}

// WhatsAppConfig contains WhatsApp Cloud API configuration
type WhatsAppConfig struct {
	APIBaseURL     string `toml:"api_base_url" validate:"url"` // Graph API base (default: "https://graph.facebook.com")
	APIVersion     string `toml:"api_version"`                 // Graph API version (default: "v22.0")
	PhoneNumberID  string `toml:"phone_number_id"`             // Sending phone number id
	AccessToken    string `toml:"access_token"`                // Bearer token
	VerifyToken    string `toml:"verify_token"`                // Webhook verification token
	FormatMarkdown bool   `toml:"format_markdown"`             // Convert Markdown replies to WhatsApp markup
	Timeout        string `toml:"timeout"`                     // HTTP timeout (default: "30s")
	RateLimit      int    `toml:"rate_limit"`                  // Requests per second (default: 20)
}

// IngestConfig controls corpus ingestion
type IngestConfig struct {
	ChunkSize    int      `toml:"chunk_size" validate:"min=1"`    // Characters per chunk (default: 1024)
	ChunkOverlap int      `toml:"chunk_overlap" validate:"min=0"` // Overlap between chunks (default: 128)
	Extensions   []string `toml:"extensions"`                     // Page file extensions (default: .md .txt .html)
	Concurrency  int      `toml:"concurrency" validate:"min=1"`   // Parallel embedding calls (default: 4)
}

// SchedulerConfig contains maintenance job schedules
type SchedulerConfig struct {
	Enabled        bool    `toml:"enabled"`
	GCSchedule     string  `toml:"gc_schedule"`      // Cron schedule for value-log GC (default: "@every 1h")
	GCDiscardRatio float64 `toml:"gc_discard_ratio"` // Badger GC discard ratio (default: 0.5)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Conversation: ConversationConfig{
			MaxMessages: 10,
			TTL:         "168h", // 7 days
			KeyPrefix:   "conversation:",
		},
		Retrieval: RetrievalConfig{
			TopK:        5,
			MaxHits:     8,
			Concurrency: 8,
		},
		Decision: DecisionConfig{
			Window:           "5m",
			MaxHistory:       10,
			QuestionFastPath: false,
			Timezone:         "America/Lima",
			Timeout:          "20s",
		},
		Assistant: AssistantConfig{
			MaxSteps:       10,
			SerializeTurns: false,
			FallbackReply:  "Lo siento, no pude procesar tu mensaje. Intenta de nuevo en unos minutos.",
			Timeout:        "2m",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			RateLimit:   "100ms",
			Temperature: 0.4,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			RateLimit:   "100ms",
			Temperature: 0.4,
		},
		Embeddings: EmbeddingsConfig{
			Model:     "gemini-embedding-001",
			Dimension: 768,
			RateLimit: "50ms",
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL:     "https://graph.facebook.com",
			APIVersion:     "v22.0",
			FormatMarkdown: true,
			Timeout:        "30s",
			RateLimit:      20,
		},
		Ingest: IngestConfig{
			ChunkSize:    1024,
			ChunkOverlap: 128,
			Extensions:   []string{".md", ".txt", ".html"},
			Concurrency:  4,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			GCSchedule:     "@every 1h",
			GCDiscardRatio: 0.5,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MAESTRO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MAESTRO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		// Container platforms inject PORT
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MAESTRO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MAESTRO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MAESTRO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MAESTRO_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM configuration
	if provider := os.Getenv("MAESTRO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if apiKey := os.Getenv("MAESTRO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("MAESTRO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	} else if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}

	// WhatsApp configuration (names kept compatible with the Cloud API quickstart)
	if token := os.Getenv("WHATSAPP_ACCESS_TOKEN"); token != "" {
		config.WhatsApp.AccessToken = token
	}
	if phoneID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); phoneID != "" {
		config.WhatsApp.PhoneNumberID = phoneID
	}
	if verifyToken := os.Getenv("WHATSAPP_VERIFY_TOKEN"); verifyToken != "" {
		config.WhatsApp.VerifyToken = verifyToken
	}

	// Assistant configuration
	if serialize := os.Getenv("MAESTRO_SERIALIZE_TURNS"); serialize != "" {
		if st, err := strconv.ParseBool(serialize); err == nil {
			config.Assistant.SerializeTurns = st
		}
	}
	if fastPath := os.Getenv("MAESTRO_QUESTION_FAST_PATH"); fastPath != "" {
		if fp, err := strconv.ParseBool(fastPath); err == nil {
			config.Decision.QuestionFastPath = fp
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints and duration fields
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"conversation.ttl":      c.Conversation.TTL,
		"decision.window":       c.Decision.Window,
		"decision.timeout":      c.Decision.Timeout,
		"assistant.timeout":     c.Assistant.Timeout,
		"whatsapp.timeout":      c.WhatsApp.Timeout,
		"gemini.rate_limit":     c.Gemini.RateLimit,
		"claude.rate_limit":     c.Claude.RateLimit,
		"embeddings.rate_limit": c.Embeddings.RateLimit,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("invalid configuration: ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}

	if c.Decision.Timezone != "" {
		if _, err := time.LoadLocation(c.Decision.Timezone); err != nil {
			return fmt.Errorf("invalid configuration: decision.timezone: %w", err)
		}
	}

	return nil
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// splitList splits a comma-separated environment value, dropping empty entries
func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
