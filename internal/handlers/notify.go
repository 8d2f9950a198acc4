package handlers

import (
	"net/http"

	"couples-backend/internal/services"
)

// NotifyHandler sends notifications to the caller's partner
type NotifyHandler struct {
	notificationService *services.NotificationService
}

// NewNotifyHandler creates a new notify handler
func NewNotifyHandler(notificationService *services.NotificationService) *NotifyHandler {
	return &NotifyHandler{
		notificationService: notificationService,
	}
}

// NotificationRequest represents the request body for a notification
type NotificationRequest struct {
	Message string `json:"message" validate:"required"`
}

// Quick handles POST /notify/quick
func (h *NotifyHandler) Quick(w http.ResponseWriter, r *http.Request) {
	h.notify(w, r, services.NotificationQuick)
}

// Custom handles POST /notify/custom
func (h *NotifyHandler) Custom(w http.ResponseWriter, r *http.Request) {
	h.notify(w, r, services.NotificationCustom)
}

func (h *NotifyHandler) notify(w http.ResponseWriter, r *http.Request, kind string) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req NotificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.notificationService.Notify(r.Context(), userID, kind, req.Message); err != nil {
		respondServiceError(w, r, err, "Failed to send notification")
		return
	}

	respondJSON(w, r, http.StatusOK, okResponse)
}
