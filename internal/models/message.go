package models

// InboundMessage is one user turn normalized from the transport
type InboundMessage struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Text           string `json:"text"`
	AttachmentID   string `json:"attachment_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"` // Transport message id, used for logging only
}

// HasAttachment reports whether the message carries an attachment
func (m InboundMessage) HasAttachment() bool {
	return m.AttachmentID != ""
}

// OutboundMessage is a reply handed to the delivery sink
type OutboundMessage struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// Media is binary attachment content resolved from an attachment id
type Media struct {
	Data     []byte
	MIMEType string
}

// TurnOutcome reports what a processed turn produced
type TurnOutcome struct {
	TurnID    string `json:"turn_id"`
	Responded bool   `json:"responded"`
	Reply     string `json:"reply,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"` // Reply is the configured fallback after a generation failure
}
