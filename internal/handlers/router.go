package handlers

import (
	"net/http"
	"strings"
	"time"

	"couples-backend/internal/metrics"
	"couples-backend/internal/middleware"
	"couples-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

// RouterDeps holds everything the HTTP layer needs
type RouterDeps struct {
	Tokens              middleware.TokenVerifier
	UserService         *services.UserService
	PairingService      *services.PairingService
	CoupleService       *services.CoupleService
	QuickMessageService *services.QuickMessageService
	SlideshowService    *services.SlideshowService
	NotificationService *services.NotificationService

	MaxUploadBytes int64
	// UploadDir is served under UploadPrefix when set
	UploadDir      string
	UploadPrefix   string
	MetricsEnabled bool
}

// NewRouter builds the HTTP router
func NewRouter(deps RouterDeps) http.Handler {
	authHandler := NewAuthHandler(deps.UserService)
	userHandler := NewUserHandler(deps.UserService)
	pairHandler := NewPairHandler(deps.PairingService, deps.CoupleService)
	messageHandler := NewQuickMessageHandler(deps.QuickMessageService)
	slideshowHandler := NewSlideshowHandler(deps.SlideshowService, deps.MaxUploadBytes)
	notifyHandler := NewNotifyHandler(deps.NotificationService)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, okResponse)
	})

	if deps.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	if deps.UploadDir != "" {
		prefix := "/" + strings.Trim(deps.UploadPrefix, "/")
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}

	// Public routes
	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(authRateLimit, authRateWindow))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(deps.Tokens))

		r.Get("/users/me", userHandler.Me)
		r.Patch("/users/me", userHandler.UpdateMe)

		r.Post("/pair/code", pairHandler.GenerateCode)
		r.Post("/pair/confirm", pairHandler.Confirm)
		r.Get("/couple/status", pairHandler.Status)
		r.Get("/couple/timer", pairHandler.Timer)

		r.Post("/quick-messages", messageHandler.Create)
		r.Get("/quick-messages", messageHandler.List)
		r.Delete("/quick-messages/{id}", messageHandler.Delete)

		r.Post("/slideshow/upload", slideshowHandler.Upload)
		r.Get("/slideshow", slideshowHandler.List)
		r.Put("/slideshow/reorder", slideshowHandler.Reorder)
		r.Delete("/slideshow/{id}", slideshowHandler.Delete)

		r.Post("/notify/quick", notifyHandler.Quick)
		r.Post("/notify/custom", notifyHandler.Custom)
	})

	return r
}
