package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// Config controls the turn-completion decision
type Config struct {
	Window           time.Duration  // Only messages newer than this reach the classifier
	MaxHistory       int            // Newest messages kept from the window
	QuestionFastPath bool           // Answer obvious questions without a classifier call
	Location         *time.Location // Zone for time-of-day annotations
	Timeout          time.Duration  // Classifier call timeout
}

// NewConfig builds the decision configuration from application config
func NewConfig(config *common.DecisionConfig) Config {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		location = time.UTC
	}
	return Config{
		Window:           common.ParseDuration(config.Window, 5*time.Minute),
		MaxHistory:       config.MaxHistory,
		QuestionFastPath: config.QuestionFastPath,
		Location:         location,
		Timeout:          common.ParseDuration(config.Timeout, 20*time.Second),
	}
}

// Service decides whether the current message completes a turn.
// It keeps no per-conversation state; the decision is derived from the window each call.
type Service struct {
	oracle interfaces.ClassificationOracle
	config Config
	now    func() time.Time
	logger arbor.ILogger
}

// NewService creates a new decision service
func NewService(oracle interfaces.ClassificationOracle, config Config, logger arbor.ILogger) *Service {
	if config.Window <= 0 {
		config.Window = 5 * time.Minute
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = 10
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Service{
		oracle: oracle,
		config: config,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the clock used for the recent-window cutoff
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ShouldRespond returns true to reply now and false to wait for more messages.
// window holds the prior messages of the conversation, oldest-first, without the current one.
func (s *Service) ShouldRespond(ctx context.Context, currentText string, window []models.ConversationMessage, hasAttachment bool) bool {
	empty := strings.TrimSpace(currentText) == ""
	if empty && hasAttachment {
		s.logger.Debug().Msg("Attachment without caption, responding")
		return true
	}
	if empty {
		s.logger.Debug().Msg("Empty message without attachment, waiting")
		return false
	}

	if s.config.QuestionFastPath && isDirectQuestion(currentText) {
		s.logger.Debug().Str("text", currentText).Msg("Direct question detected, responding")
		return true
	}

	now := s.now()
	recent := recentMessages(window, now.Add(-s.config.Window), s.config.MaxHistory)
	prompt := fmt.Sprintf(rubricTemplate, buildTranscript(recent, currentText, now, hasAttachment, s.config.Location))

	classifyCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	label, err := s.oracle.Classify(classifyCtx, prompt, Labels)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Turn classification failed, responding")
		return true
	}

	respond := strings.TrimSpace(label) != LabelWaitForMore
	s.logger.Debug().
		Str("label", label).
		Bool("respond", respond).
		Int("recent", len(recent)).
		Bool("attachment", hasAttachment).
		Msg("Turn classified")

	return respond
}
