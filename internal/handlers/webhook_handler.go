package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/services/whatsapp"
)

// WebhookHandler receives WhatsApp Cloud API webhooks
type WebhookHandler struct {
	verifyToken string
	processor   interfaces.TurnProcessor
	logger      arbor.ILogger
	wg          sync.WaitGroup
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(verifyToken string, processor interfaces.TurnProcessor, logger arbor.ILogger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		processor:   processor,
		logger:      logger,
	}
}

// WebhookRoute dispatches GET verification and POST notifications
func (h *WebhookHandler) WebhookRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.VerifyHandler(w, r)
	case http.MethodPost:
		h.NotificationHandler(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// VerifyHandler answers the subscription handshake by echoing hub.challenge
func (h *WebhookHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Warn().Str("mode", mode).Msg("Webhook verification rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	h.logger.Info().Msg("Webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// NotificationHandler accepts a webhook notification and processes its
// messages after responding, so slow generation never delays the acknowledgement
func (h *WebhookHandler) NotificationHandler(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.WebhookPayload
	if err := DecodeJSON(w, r, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode webhook payload")
		WriteError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	messages := whatsapp.Normalize(&payload)
	if len(messages) > 0 {
		h.logger.Debug().Int("messages", len(messages)).Msg("Webhook messages received")

		ctx := context.WithoutCancel(r.Context())
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for _, message := range messages {
				if _, err := h.processor.ProcessTurn(ctx, message); err != nil {
					h.logger.Error().
						Err(err).
						Str("conversation_id", message.ConversationID).
						Str("message_id", message.MessageID).
						Msg("Failed to process webhook message")
				}
			}
		}()
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Wait blocks until messages accepted so far have been processed
func (h *WebhookHandler) Wait() {
	h.wg.Wait()
}
