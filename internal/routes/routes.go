package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/shopfloor/gatekeeper/internal/auth"
	"github.com/shopfloor/gatekeeper/internal/handlers"
	"github.com/shopfloor/gatekeeper/internal/middleware"
	pkghttp "github.com/shopfloor/gatekeeper/pkg/http"
)

// RegisterRoutes registers all application routes under /api
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tokenManager *auth.TokenManager,
	signupPerMinute int,
	ipConfig *pkghttp.IPConfig,
) {
	// Public routes - no authentication required
	router.Post("/auth/signin", authHandler.SignIn)
	router.Post("/auth/refresh", authHandler.Refresh)
	router.With(middleware.SignupRateLimit(signupPerMinute, ipConfig)).Post("/auth/signup", authHandler.SignUp)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		r.Get("/users/me", userHandler.Me)

		r.With(auth.RequireAuthority("user:read")).Get("/users", userHandler.List)
	})
}
