package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Maestro", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Int("max_messages", config.Conversation.MaxMessages).
		Int("max_steps", config.Assistant.MaxSteps).
		Bool("serialize_turns", config.Assistant.SerializeTurns).
		Msg("Maestro starting")
}
