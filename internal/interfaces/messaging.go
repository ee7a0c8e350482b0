package interfaces

import (
	"context"

	"github.com/ternarybob/maestro/internal/models"
)

// MediaFetcher resolves an attachment id to its content.
// It returns nil on any failure so callers can continue text-only.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string) *models.Media
}

// MessageSink delivers a reply to the user; delivery is not retried
type MessageSink interface {
	Send(ctx context.Context, message models.OutboundMessage) error
}
