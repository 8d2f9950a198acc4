package handlers

import (
	"errors"
	"net/http"

	"couples-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// SlideshowHandler handles a couple's slideshow
type SlideshowHandler struct {
	slideshowService *services.SlideshowService
	maxUploadBytes   int64
}

// NewSlideshowHandler creates a new slideshow handler
func NewSlideshowHandler(slideshowService *services.SlideshowService, maxUploadBytes int64) *SlideshowHandler {
	return &SlideshowHandler{
		slideshowService: slideshowService,
		maxUploadBytes:   maxUploadBytes,
	}
}

// ReorderSlideshowRequest represents the request body for reordering images
type ReorderSlideshowRequest struct {
	ImageIDs []int64 `json:"imageIds" validate:"required"`
}

// Upload handles POST /slideshow/upload
func (h *SlideshowHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, "File is too large", "VALIDATION_FAILURE", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, "file is required", "VALIDATION_FAILURE", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := h.slideshowService.Upload(r.Context(), userID, services.UploadFile{
		Body:         file,
		Size:         header.Size,
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to upload slideshow image")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("image_id", image.ID).
		Str("image_url", image.ImageURL).
		Msg("Slideshow image uploaded")

	respondJSON(w, r, http.StatusOK, image)
}

// List handles GET /slideshow
func (h *SlideshowHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	images, err := h.slideshowService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list slideshow images")
		return
	}

	respondJSON(w, r, http.StatusOK, images)
}

// Reorder handles PUT /slideshow/reorder
func (h *SlideshowHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ReorderSlideshowRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.slideshowService.Reorder(r.Context(), userID, req.ImageIDs); err != nil {
		respondServiceError(w, r, err, "Failed to reorder slideshow")
		return
	}

	respondJSON(w, r, http.StatusOK, okResponse)
}

// Delete handles DELETE /slideshow/{id}
func (h *SlideshowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	imageID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.slideshowService.Delete(r.Context(), userID, imageID); err != nil {
		respondServiceError(w, r, err, "Failed to delete slideshow image")
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("image_id", imageID).
		Msg("Slideshow image deleted")

	respondJSON(w, r, http.StatusOK, okResponse)
}
