package handlers

import (
	"net/http"

	"couples-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PairHandler handles pairing and couple requests
type PairHandler struct {
	pairingService *services.PairingService
	coupleService  *services.CoupleService
}

// NewPairHandler creates a new pair handler
func NewPairHandler(pairingService *services.PairingService, coupleService *services.CoupleService) *PairHandler {
	return &PairHandler{
		pairingService: pairingService,
		coupleService:  coupleService,
	}
}

// ConfirmPairingRequest represents the request body for confirming a code
type ConfirmPairingRequest struct {
	Code string `json:"code" validate:"required,len=6,number"`
}

// GenerateCode handles POST /pair/code
func (h *PairHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	resp, err := h.pairingService.GenerateCode(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to generate pairing code")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("expires_in_seconds", resp.ExpiresInSeconds).
		Msg("Pairing code generated")

	respondJSON(w, r, http.StatusOK, resp)
}

// Confirm handles POST /pair/confirm
func (h *PairHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ConfirmPairingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	couple, err := h.pairingService.ConfirmPairing(r.Context(), req.Code, userID)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("user_id", userID).
			Msg("Pairing confirmation rejected")
		respondServiceError(w, r, err, "Failed to confirm pairing")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("couple_id", couple.ID).
		Int64("partner_id", couple.PartnerOf(userID)).
		Msg("Couple created")

	respondJSON(w, r, http.StatusOK, couple)
}

// Status handles GET /couple/status
func (h *PairHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	status, err := h.coupleService.GetStatus(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get couple status")
		return
	}

	respondJSON(w, r, http.StatusOK, status)
}

// Timer handles GET /couple/timer
func (h *PairHandler) Timer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	timer, err := h.coupleService.GetTimer(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get couple timer")
		return
	}

	respondJSON(w, r, http.StatusOK, timer)
}
