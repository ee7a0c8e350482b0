package interfaces

import (
	"context"

	"github.com/ternarybob/maestro/internal/models"
)

// TurnDecider decides whether the current message completes a turn
type TurnDecider interface {
	ShouldRespond(ctx context.Context, currentText string, window []models.ConversationMessage, hasAttachment bool) bool
}

// TurnProcessor runs one inbound message through store, decision and generation
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error)
}

// Answerer answers a standalone question with knowledge search, without history
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}
