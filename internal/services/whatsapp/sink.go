package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/models"
)

// maxTextLength is the WhatsApp limit for one text message body
const maxTextLength = 4096

// Sink delivers assistant replies through the Graph API
type Sink struct {
	client         *Client
	formatMarkdown bool
	logger         arbor.ILogger
}

// NewSink creates a reply sink; formatMarkdown converts Markdown to WhatsApp markup first
func NewSink(client *Client, formatMarkdown bool, logger arbor.ILogger) *Sink {
	return &Sink{
		client:         client,
		formatMarkdown: formatMarkdown,
		logger:         logger,
	}
}

// Send implements interfaces.MessageSink. Long replies are split into
// several messages; the first failure stops delivery and is returned.
func (s *Sink) Send(ctx context.Context, message models.OutboundMessage) error {
	body := message.Text
	if s.formatMarkdown {
		body = FormatMarkdown(body)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("refusing to send an empty message")
	}

	parts := SplitText(body, maxTextLength)
	for i, part := range parts {
		resp, err := s.client.SendText(ctx, message.ConversationID, part)
		if err != nil {
			return fmt.Errorf("failed to send part %d of %d: %w", i+1, len(parts), err)
		}
		messageID := ""
		if len(resp.Messages) > 0 {
			messageID = resp.Messages[0].ID
		}
		s.logger.Debug().
			Str("to", message.ConversationID).
			Str("message_id", messageID).
			Int("length", len(part)).
			Msg("WhatsApp message sent")
	}
	return nil
}

// SplitText splits text into parts of at most limit runes, preferring
// paragraph breaks, then line breaks, then spaces.
func SplitText(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := lastBreak(runes[:limit])
		part := strings.TrimSpace(string(runes[:cut]))
		if part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \n"))
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func lastBreak(window []rune) int {
	s := string(window)
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(s, sep); i > 0 {
			return len([]rune(s[:i]))
		}
	}
	return len(window)
}
