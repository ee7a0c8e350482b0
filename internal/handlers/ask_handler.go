package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

// AskResponse reports the outcome of one turn
type AskResponse struct {
	ConversationID string `json:"conversation_id"`
	TurnID         string `json:"turn_id"`
	Responded      bool   `json:"responded"`
	Reply          string `json:"reply,omitempty"`
	Fallback       bool   `json:"fallback,omitempty"`
}

// AskHandler runs full turns over HTTP without WhatsApp delivery
type AskHandler struct {
	processor interfaces.TurnProcessor
	logger    arbor.ILogger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(processor interfaces.TurnProcessor, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		processor: processor,
		logger:    logger,
	}
}

// AskHandler stores the message, decides and, when the turn is complete, replies
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AskRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = common.NewRequestID()
	}

	outcome, err := h.processor.ProcessTurn(r.Context(), models.InboundMessage{
		ConversationID: req.ConversationID,
		Text:           req.Text,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Ask failed")
		WriteError(w, http.StatusBadGateway, "Failed to generate a reply")
		return
	}

	WriteJSON(w, http.StatusOK, AskResponse{
		ConversationID: req.ConversationID,
		TurnID:         outcome.TurnID,
		Responded:      outcome.Responded,
		Reply:          outcome.Reply,
		Fallback:       outcome.Fallback,
	})
}
