package common

import (
	"github.com/google/uuid"
)

// NewRequestID generates a correlation id for one inbound request
// Format: req_<uuid>
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewTurnID generates an id for one decision cycle of a conversation
// Format: turn_<uuid>
func NewTurnID() string {
	return "turn_" + uuid.New().String()
}
