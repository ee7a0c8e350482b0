package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/maestro/internal/models"
)

const attachmentMarker = "[attachment]"

// recentMessages keeps messages newer than since, capped to the newest max
func recentMessages(window []models.ConversationMessage, since time.Time, max int) []models.ConversationMessage {
	recent := make([]models.ConversationMessage, 0, len(window))
	for _, message := range window {
		if message.Time().After(since) {
			recent = append(recent, message)
		}
	}
	if len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	return recent
}

// formatLine renders one transcript line: "[15:04] role: text [attachment]"
func formatLine(role models.Role, text string, at time.Time, hasAttachment bool, location *time.Location) string {
	line := fmt.Sprintf("[%s] %s: %s", at.In(location).Format("15:04"), role, strings.TrimSpace(text))
	if hasAttachment {
		line = strings.TrimSpace(line) + " " + attachmentMarker
	}
	return line
}

// buildTranscript renders the recent window followed by the current message
func buildTranscript(recent []models.ConversationMessage, currentText string, now time.Time, hasAttachment bool, location *time.Location) string {
	var sb strings.Builder
	if len(recent) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, message := range recent {
			sb.WriteString(formatLine(message.Role, message.Content, message.Time(), message.HasAttachment(), location))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Current message:\n")
	sb.WriteString(formatLine(models.RoleUser, currentText, now, hasAttachment, location))
	return sb.String()
}
