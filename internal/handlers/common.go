package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"couples-backend/internal/middleware"
	"couples-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusResponse is returned by operations that have no other result
type StatusResponse struct {
	Status string `json:"status"`
}

var okResponse = StatusResponse{Status: "ok"}

// errorKinds maps service errors to an HTTP status and a machine-readable kind
var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{services.ErrAlreadyPaired, http.StatusConflict, "ALREADY_PAIRED"},
	{services.ErrNotPaired, http.StatusNotFound, "NOT_PAIRED"},
	{services.ErrInvalidOrExpiredCode, http.StatusBadRequest, "INVALID_OR_EXPIRED_CODE"},
	{services.ErrSelfPairing, http.StatusConflict, "SELF_PAIRING"},
	{services.ErrOwnerAlreadyPaired, http.StatusConflict, "OWNER_ALREADY_PAIRED"},
	{services.ErrLimitReached, http.StatusConflict, "LIMIT_REACHED"},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrForbiddenCrossCouple, http.StatusForbidden, "FORBIDDEN_CROSS_COUPLE"},
	{services.ErrInvalidImageSet, http.StatusBadRequest, "INVALID_IMAGE_SET"},
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILURE"},
	{services.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{services.ErrUnauthorized, http.StatusUnauthorized, "AUTH_FAILURE"},
}

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, r *http.Request, statusCode int, body any) {
	render.Status(r, statusCode)
	render.JSON(w, r, body)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, message, kind string, statusCode int) {
	respondJSON(w, r, statusCode, ErrorResponse{Error: message, Kind: kind})
}

// respondServiceError translates err into an error response. Errors outside
// the service taxonomy are logged and reported as internal.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			respondError(w, r, err.Error(), k.kind, k.status)
			return
		}
	}

	userID, _ := middleware.GetUserID(r.Context())
	log.Error().Err(err).Int64("user_id", userID).Msg(msg)
	respondError(w, r, "Internal server error", "INTERNAL", http.StatusInternalServerError)
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		respondError(w, r, "Invalid request body", "VALIDATION_FAILURE", http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			respondError(w, r, validationMessage(validateErr), "VALIDATION_FAILURE", http.StatusBadRequest)
			return false
		}
		respondError(w, r, "Invalid request body", "VALIDATION_FAILURE", http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "min", "max", "len":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

// currentUser returns the authenticated user id, or writes 401
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondError(w, r, "Unauthorized", "AUTH_FAILURE", http.StatusUnauthorized)
	}
	return userID, ok
}

// idParam parses a positive numeric URL parameter, or writes 400
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, name+" must be a positive integer", "VALIDATION_FAILURE", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
