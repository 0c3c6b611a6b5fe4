package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopfloor/gatekeeper/internal/models"
	"github.com/shopfloor/gatekeeper/internal/services"
	pkgauth "github.com/shopfloor/gatekeeper/pkg/auth"
	pkghttp "github.com/shopfloor/gatekeeper/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	SignIn(ctx context.Context, username, password, address string) (*services.SignInResponse, error)
	SignUp(ctx context.Context, username, email, password string, roles []string, address string) (*services.SignUpResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.SignInResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	ipConfig     *pkghttp.IPConfig
	lockDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, lockDuration time.Duration) *AuthHandler {
	return &AuthHandler{
		service:      service,
		ipConfig:     ipConfig,
		lockDuration: lockDuration,
	}
}

// Request DTOs

// SignInRequest represents the request body for signin
type SignInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest represents the request body for registration
type SignUpRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email" validate:"required,email,max=50"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles,omitempty"`
}

// RefreshRequest represents the request body for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SignUpResponse represents the response body for successful registration
type SignUpResponse struct {
	Message  string `json:"message"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	address := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.SignIn(r.Context(), req.Username, req.Password, address)
	if err != nil {
		h.writeSignInError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeSignInError(w http.ResponseWriter, err error) {
	if ice, ok := models.IsInvalidCredentials(err); ok {
		noun := "attempts"
		if ice.RemainingAttempts == 1 {
			noun = "attempt"
		}
		pkghttp.WriteUnauthorized(w,
			fmt.Sprintf("Invalid username or password. %d %s remaining.", ice.RemainingAttempts, noun))
		return
	}

	switch {
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteTooManyRequests(w,
			fmt.Sprintf("Too many failed signin attempts. Try again in %d minutes.", int(h.lockDuration.Minutes())))
	case errors.Is(err, models.ErrAccountDisabled):
		pkghttp.WriteUnauthorized(w, "Account is disabled")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := pkgauth.ValidatePassword(req.Password); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	address := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.SignUp(r.Context(), req.Username, req.Email, req.Password, req.Roles, address)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateUsername):
			pkghttp.WriteBadRequest(w, "Username is already taken")
		case errors.Is(err, models.ErrDuplicateEmail):
			pkghttp.WriteBadRequest(w, "Email is already in use")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SignUpResponse{
		Message:  "User registered successfully",
		ID:       result.ID,
		Username: result.Username,
	})
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrAccountDisabled):
			pkghttp.WriteUnauthorized(w, "Invalid refresh token")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
