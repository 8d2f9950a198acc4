package handlers

import (
	"net/http"

	"couples-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// QuickMessageHandler handles a couple's quick messages
type QuickMessageHandler struct {
	messageService *services.QuickMessageService
}

// NewQuickMessageHandler creates a new quick message handler
func NewQuickMessageHandler(messageService *services.QuickMessageService) *QuickMessageHandler {
	return &QuickMessageHandler{
		messageService: messageService,
	}
}

// QuickMessageRequest represents the request body for creating a message
type QuickMessageRequest struct {
	Content string `json:"content" validate:"required,max=50"`
}

// Create handles POST /quick-messages
func (h *QuickMessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req QuickMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.messageService.Create(r.Context(), userID, req.Content)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create quick message")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("message_id", msg.ID).
		Msg("Quick message created")

	respondJSON(w, r, http.StatusOK, msg)
}

// List handles GET /quick-messages
func (h *QuickMessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	msgs, err := h.messageService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list quick messages")
		return
	}

	respondJSON(w, r, http.StatusOK, msgs)
}

// Delete handles DELETE /quick-messages/{id}
func (h *QuickMessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	messageID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), userID, messageID); err != nil {
		respondServiceError(w, r, err, "Failed to delete quick message")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("message_id", messageID).
		Msg("Quick message deleted")

	respondJSON(w, r, http.StatusOK, okResponse)
}
