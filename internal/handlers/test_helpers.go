package handlers

import (
	"context"

	"github.com/shopfloor/gatekeeper/internal/models"
	"github.com/shopfloor/gatekeeper/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignInFunc  func(ctx context.Context, username, password, address string) (*services.SignInResponse, error)
	SignUpFunc  func(ctx context.Context, username, email, password string, roles []string, address string) (*services.SignUpResult, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (*services.SignInResponse, error)
}

func (m *MockAuthService) SignIn(ctx context.Context, username, password, address string) (*services.SignInResponse, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, username, password, address)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) SignUp(ctx context.Context, username, email, password string, roles []string, address string) (*services.SignUpResult, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, username, email, password, roles, address)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.SignInResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetProfileFunc func(ctx context.Context, id string) (*services.UserResponse, error)
	ListUsersFunc  func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
}

func (m *MockUserService) GetProfile(ctx context.Context, id string) (*services.UserResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*services.UserResponse{}, nil
}
