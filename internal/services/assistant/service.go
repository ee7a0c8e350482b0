package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// SearchToolName is the name the model uses to call the retrieval engine
const SearchToolName = "searchKnowledge"

// Config controls the response assembler
type Config struct {
	MaxSteps      int           // Tool-loop step bound
	FallbackReply string        // Sent when generation fails; empty disables
	Timeout       time.Duration // Generation timeout
}

// NewConfig builds the assistant configuration from application config
func NewConfig(config *common.AssistantConfig) Config {
	return Config{
		MaxSteps:      config.MaxSteps,
		FallbackReply: config.FallbackReply,
		Timeout:       common.ParseDuration(config.Timeout, 2*time.Minute),
	}
}

// Service is the response assembler. For each inbound message it stores the
// message, asks the decider whether the turn is complete and, if so, generates
// a reply with the knowledge search tool, stores it and hands it to the sink.
type Service struct {
	store     interfaces.ConversationStore
	decider   interfaces.TurnDecider
	oracle    interfaces.GenerationOracle
	retriever interfaces.Retriever
	media     interfaces.MediaFetcher
	sink      interfaces.MessageSink
	lock      *TurnLock
	config    Config
	validate  *validator.Validate
	now       func() time.Time
	logger    arbor.ILogger
}

// Option configures optional collaborators
type Option func(*Service)

// WithMediaFetcher enables inline images for messages with attachments
func WithMediaFetcher(media interfaces.MediaFetcher) Option {
	return func(s *Service) {
		s.media = media
	}
}

// WithSink delivers replies; without a sink replies are only stored and returned
func WithSink(sink interfaces.MessageSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithTurnLock serializes turns of the same conversation
func WithTurnLock(lock *TurnLock) Option {
	return func(s *Service) {
		s.lock = lock
	}
}

// WithClock replaces the clock used to stamp stored messages
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new response assembler
func NewService(
	store interfaces.ConversationStore,
	decider interfaces.TurnDecider,
	oracle interfaces.GenerationOracle,
	retriever interfaces.Retriever,
	config Config,
	logger arbor.ILogger,
	opts ...Option,
) *Service {
	if config.MaxSteps <= 0 {
		config.MaxSteps = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	s := &Service{
		store:     store,
		decider:   decider,
		oracle:    oracle,
		retriever: retriever,
		config:    config,
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessTurn runs one inbound message through store, decision and generation.
// A message without a conversation identity is a no-op. The returned error is
// non-nil only when no reply could be produced and no fallback is configured.
func (s *Service) ProcessTurn(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error) {
	outcome := &models.TurnOutcome{TurnID: common.NewTurnID()}

	if err := s.validate.Struct(message); err != nil {
		s.logger.Warn().Err(err).Str("message_id", message.MessageID).Msg("Dropping inbound message without conversation identity")
		return outcome, nil
	}

	logger := s.logger.WithCorrelationId(outcome.TurnID)
	conversationID := message.ConversationID

	if s.lock != nil {
		unlock, err := s.lock.Lock(ctx, conversationID)
		if err != nil {
			return outcome, fmt.Errorf("failed to acquire turn lock: %w", err)
		}
		defer unlock()
	}

	current := models.NewUserMessage(message.Text, message.AttachmentID, s.now())
	s.store.Append(ctx, conversationID, current)

	history := withoutCurrent(s.store.Read(ctx, conversationID), current)
	if !s.decider.ShouldRespond(ctx, message.Text, history, message.HasAttachment()) {
		logger.Info().
			Str("conversation_id", conversationID).
			Int("history", len(history)).
			Msg("Turn incomplete, waiting for more messages")
		return outcome, nil
	}

	// The window may have grown while deciding
	window := withCurrent(s.store.Read(ctx, conversationID), current)
	messages := s.buildMessages(ctx, window, current)

	reply, err := s.generate(ctx, messages)
	if err != nil {
		if s.config.FallbackReply == "" {
			logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Reply generation failed")
			return outcome, fmt.Errorf("failed to generate reply: %w", err)
		}
		logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Reply generation failed, sending fallback reply")
		reply = s.config.FallbackReply
		outcome.Fallback = true
	}

	s.store.Append(ctx, conversationID, models.NewAssistantMessage(reply, s.now()))
	outcome.Responded = true
	outcome.Reply = reply

	if s.sink != nil {
		if err := s.sink.Send(ctx, models.OutboundMessage{ConversationID: conversationID, Text: reply}); err != nil {
			logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to deliver reply")
		}
	}

	logger.Info().
		Str("conversation_id", conversationID).
		Int("window", len(window)).
		Int("reply_length", len(reply)).
		Bool("fallback", outcome.Fallback).
		Msg("Turn answered")

	return outcome, nil
}

// Answer generates a reply for a standalone question without conversation history
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	return s.generate(ctx, []interfaces.OracleMessage{{Role: models.RoleUser, Text: question}})
}

func (s *Service) generate(ctx context.Context, messages []interfaces.OracleMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	result, err := s.oracle.Generate(ctx, &interfaces.GenerationRequest{
		SystemInstruction: SystemPrompt,
		Messages:          messages,
		Tools:             []interfaces.Tool{s.searchTool()},
		MaxSteps:          s.config.MaxSteps,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	s.logger.Debug().
		Str("provider", result.Provider).
		Str("model", result.Model).
		Int("steps", result.Steps).
		Int("tool_calls", result.ToolCalls).
		Msg("Reply generated")

	return text, nil
}

// buildMessages converts the window to oracle messages. Only the current
// message's attachment is downloaded; older attachments become a marker.
func (s *Service) buildMessages(ctx context.Context, window []models.ConversationMessage, current models.ConversationMessage) []interfaces.OracleMessage {
	messages := make([]interfaces.OracleMessage, 0, len(window))
	for _, msg := range window {
		oracleMessage := interfaces.OracleMessage{Role: msg.Role, Text: msg.Content}

		if msg.HasAttachment() {
			if s.media != nil && sameMessage(msg, current) {
				oracleMessage.Image = s.media.DownloadMedia(ctx, msg.ImageReference)
			}
			if oracleMessage.Image == nil {
				oracleMessage.Text = strings.TrimSpace(msg.Content + " " + imageMarker)
			}
		}

		messages = append(messages, oracleMessage)
	}
	return messages
}

func (s *Service) searchTool() interfaces.Tool {
	return interfaces.Tool{
		Name:        SearchToolName,
		Description: searchToolDescription,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"queries": map[string]interface{}{
					"type":        "array",
					"description": "Semantic search queries, 2-4 for complex questions",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"queries"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			queries, err := stringList(args["queries"])
			if err != nil {
				return "", err
			}
			return s.retriever.Search(ctx, queries), nil
		},
	}
}

func stringList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("queries must be strings, got %T", item)
			}
			out = append(out, text)
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("queries must be a list of strings, got %T", value)
	}
}

func sameMessage(a, b models.ConversationMessage) bool {
	return a.Role == b.Role && a.Timestamp == b.Timestamp && a.Content == b.Content && a.ImageReference == b.ImageReference
}

// withoutCurrent drops the just-stored message from the end of the window
func withoutCurrent(window []models.ConversationMessage, current models.ConversationMessage) []models.ConversationMessage {
	for i := len(window) - 1; i >= 0; i-- {
		if sameMessage(window[i], current) {
			return append(window[:i:i], window[i+1:]...)
		}
	}
	return window
}

// withCurrent makes sure the current message is part of the window even when storing it failed
func withCurrent(window []models.ConversationMessage, current models.ConversationMessage) []models.ConversationMessage {
	for _, msg := range window {
		if sameMessage(msg, current) {
			return window
		}
	}
	return append(window, current)
}
