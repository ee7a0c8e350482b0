package interfaces

import (
	"context"

	"github.com/ternarybob/maestro/internal/models"
)

// ConversationStore keeps the bounded, expiring message window of each conversation.
// Neither operation reports storage failures: Append logs and drops them,
// Read degrades to an empty window.
type ConversationStore interface {
	// Append adds a message as the newest entry and refreshes the window expiry
	Append(ctx context.Context, conversationID string, message models.ConversationMessage)

	// Read returns the window oldest-first
	Read(ctx context.Context, conversationID string) []models.ConversationMessage
}
