package whatsapp

import (
	"strings"

	"github.com/ternarybob/maestro/internal/models"
)

const (
	// ObjectBusinessAccount is the webhook object of WhatsApp Business notifications
	ObjectBusinessAccount = "whatsapp_business_account"

	fieldMessages = "messages"
)

// Normalize extracts the inbound user messages of a webhook payload.
// Text and image messages are kept; statuses, reactions and other types are skipped.
func Normalize(payload *WebhookPayload) []models.InboundMessage {
	messages := []models.InboundMessage{}
	if payload == nil || payload.Object != ObjectBusinessAccount {
		return messages
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != fieldMessages {
				continue
			}
			for _, message := range change.Value.Messages {
				inbound, ok := normalizeMessage(message)
				if ok {
					messages = append(messages, inbound)
				}
			}
		}
	}
	return messages
}

func normalizeMessage(message Message) (models.InboundMessage, bool) {
	inbound := models.InboundMessage{
		ConversationID: message.From,
		MessageID:      message.ID,
	}

	switch message.Type {
	case "text":
		if message.Text == nil {
			return inbound, false
		}
		inbound.Text = strings.TrimSpace(message.Text.Body)
	case "image":
		if message.Image == nil || message.Image.ID == "" {
			return inbound, false
		}
		inbound.Text = strings.TrimSpace(message.Image.Caption)
		inbound.AttachmentID = message.Image.ID
	default:
		return inbound, false
	}

	return inbound, true
}
