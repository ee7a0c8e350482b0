package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// Config bounds one conversation window
type Config struct {
	MaxMessages int
	TTL         time.Duration
	KeyPrefix   string
}

// NewConfig builds the store configuration from application config
func NewConfig(config *common.ConversationConfig) Config {
	return Config{
		MaxMessages: config.MaxMessages,
		TTL:         common.ParseDuration(config.TTL, 7*24*time.Hour),
		KeyPrefix:   config.KeyPrefix,
	}
}

// Service is the conversation store: a newest-first list per identity,
// trimmed to MaxMessages and expiring after TTL without writes.
type Service struct {
	storage  interfaces.ListStorage
	config   Config
	validate *validator.Validate
	logger   arbor.ILogger
}

// storedMessage mirrors the persisted record so missing fields can be detected
type storedMessage struct {
	Role           string  `json:"role" validate:"required,oneof=user assistant"`
	Content        *string `json:"content"`
	Timestamp      int64   `json:"timestamp" validate:"gt=0"`
	ImageReference string  `json:"imageReference,omitempty"`
}

var errMissingContent = errors.New("content missing")

// NewService creates a new conversation store
func NewService(storage interfaces.ListStorage, config Config, logger arbor.ILogger) *Service {
	if config.MaxMessages <= 0 {
		config.MaxMessages = 10
	}
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "conversation:"
	}
	return &Service{
		storage:  storage,
		config:   config,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Service) key(conversationID string) string {
	return s.config.KeyPrefix + conversationID
}

// Append stores message as the newest entry, evicts the oldest beyond the
// window and refreshes the expiry. Failures are logged, never returned.
func (s *Service) Append(ctx context.Context, conversationID string, message models.ConversationMessage) {
	if conversationID == "" {
		s.logger.Warn().Msg("Append skipped: empty conversation id")
		return
	}

	raw, err := json.Marshal(message)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to encode conversation message")
		return
	}

	key := s.key(conversationID)
	if _, err := s.storage.LPush(ctx, key, string(raw)); err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to append conversation message")
		return
	}
	if err := s.storage.LTrim(ctx, key, 0, s.config.MaxMessages-1); err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to trim conversation window")
		return
	}
	if err := s.storage.Expire(ctx, key, s.config.TTL); err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to refresh conversation expiry")
		return
	}

	s.logger.Debug().
		Str("conversation_id", conversationID).
		Str("role", string(message.Role)).
		Msg("Conversation message stored")
}

// Read returns the window oldest-first. Malformed records are dropped one by
// one; a storage failure yields an empty window.
func (s *Service) Read(ctx context.Context, conversationID string) []models.ConversationMessage {
	if conversationID == "" {
		return []models.ConversationMessage{}
	}

	records, err := s.storage.LRange(ctx, s.key(conversationID), 0, s.config.MaxMessages-1)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to read conversation window")
		return []models.ConversationMessage{}
	}

	messages := make([]models.ConversationMessage, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		message, err := s.parse(records[i])
		if err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Dropping malformed conversation record")
			continue
		}
		messages = append(messages, message)
	}
	return messages
}

func (s *Service) parse(record string) (models.ConversationMessage, error) {
	var stored storedMessage
	if err := json.Unmarshal([]byte(record), &stored); err != nil {
		return models.ConversationMessage{}, err
	}
	if err := s.validate.Struct(stored); err != nil {
		return models.ConversationMessage{}, err
	}
	if stored.Content == nil {
		return models.ConversationMessage{}, errMissingContent
	}
	return models.ConversationMessage{
		Role:           models.Role(stored.Role),
		Content:        *stored.Content,
		Timestamp:      stored.Timestamp,
		ImageReference: stored.ImageReference,
	}, nil
}
