package handlers

import (
	"net/http"

	"couples-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and token refresh
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"max=50"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request body for refreshing tokens
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := services.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}
	if req.DateOfBirth != "" {
		dob, err := services.ParseDate(req.DateOfBirth)
		if err != nil {
			respondServiceError(w, r, err, "Failed to parse date of birth")
			return
		}
		in.DateOfBirth = &dob
	}

	resp, err := h.userService.Register(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, "Failed to register user")
		return
	}

	log.Info().
		Int64("user_id", resp.UserID).
		Str("username", resp.Username).
		Msg("User registered")

	respondJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "Failed to log in")
		return
	}

	respondJSON(w, r, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.userService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err, "Failed to refresh token")
		return
	}

	respondJSON(w, r, http.StatusOK, resp)
}

// UserHandler handles the caller's own account
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpdateProfileRequest represents the request body for PATCH /users/me
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=50"`
	Password    *string `json:"password" validate:"omitempty,min=6"`
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get profile")
		return
	}

	respondJSON(w, r, http.StatusOK, profile)
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}

	log.Info().Int64("user_id", userID).Msg("Profile updated")

	respondJSON(w, r, http.StatusOK, profile)
}
