package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopfloor/gatekeeper/internal/models"
)

// UserService handles user profile queries
type UserService struct {
	users  UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone,omitempty"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	Status      string   `json:"status"`
	Roles       []string `json:"roles"`
	LastLoginAt string   `json:"lastLoginAt,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		AvatarURL: user.AvatarURL,
		Status:    user.Status,
		Roles:     user.RoleCodes(),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		resp.LastLoginAt = user.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// GetProfile returns the profile for the given user ID.
func (s *UserService) GetProfile(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user profile", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// ListUsers returns a page of users ordered by creation time.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userModelToResponse(user))
	}

	return responses, nil
}
