package models

import (
	"time"
)

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationMessage is one stored message of a conversation window.
// Timestamp is milliseconds since the Unix epoch.
type ConversationMessage struct {
	Role           Role   `json:"role"`
	Content        string `json:"content"`
	Timestamp      int64  `json:"timestamp"`
	ImageReference string `json:"imageReference,omitempty"` // Attachment id of the message, if any
}

// NewUserMessage creates a user message stamped with now
func NewUserMessage(content, imageReference string, now time.Time) ConversationMessage {
	return ConversationMessage{
		Role:           RoleUser,
		Content:        content,
		Timestamp:      now.UnixMilli(),
		ImageReference: imageReference,
	}
}

// NewAssistantMessage creates an assistant message stamped with now
func NewAssistantMessage(content string, now time.Time) ConversationMessage {
	return ConversationMessage{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: now.UnixMilli(),
	}
}

// Time returns the message timestamp as a time.Time
func (m ConversationMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// HasAttachment reports whether the message carried an attachment
func (m ConversationMessage) HasAttachment() bool {
	return m.ImageReference != ""
}
