package services

import (
	"context"
	"time"

	"github.com/shopfloor/gatekeeper/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByUsernameFunc    func(ctx context.Context, username string) (*models.User, error)
	GetByIDFunc          func(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameFunc func(ctx context.Context, username string) (bool, error)
	ExistsByEmailFunc    func(ctx context.Context, email string) (bool, error)
	CreateFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLoginFunc  func(ctx context.Context, id string, at time.Time) error
	ListFunc             func(ctx context.Context, limit, offset int) ([]*models.User, error)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsByUsernameFunc != nil {
		return m.ExistsByUsernameFunc(ctx, username)
	}
	return false, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

// MockRoleRepository implements RoleRepository for testing
type MockRoleRepository struct {
	FindByCodeFunc func(ctx context.Context, code string) (*models.Role, error)
}

func (m *MockRoleRepository) FindByCode(ctx context.Context, code string) (*models.Role, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, code)
	}
	return &models.Role{ID: "role_" + code, Name: code, Code: code}, nil
}

// MockAttemptGuard implements AttemptGuard for testing
type MockAttemptGuard struct {
	IsLockedFunc          func(ctx context.Context, username, address string) (bool, error)
	RecordFailureFunc     func(ctx context.Context, username, address string) error
	RecordSuccessFunc     func(ctx context.Context, username, address string) error
	RemainingAttemptsFunc func(ctx context.Context, username, address string) (int, error)
}

func (m *MockAttemptGuard) IsLocked(ctx context.Context, username, address string) (bool, error) {
	if m.IsLockedFunc != nil {
		return m.IsLockedFunc(ctx, username, address)
	}
	return false, nil
}

func (m *MockAttemptGuard) RecordFailure(ctx context.Context, username, address string) error {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, username, address)
	}
	return nil
}

func (m *MockAttemptGuard) RecordSuccess(ctx context.Context, username, address string) error {
	if m.RecordSuccessFunc != nil {
		return m.RecordSuccessFunc(ctx, username, address)
	}
	return nil
}

func (m *MockAttemptGuard) RemainingAttempts(ctx context.Context, username, address string) (int, error) {
	if m.RemainingAttemptsFunc != nil {
		return m.RemainingAttemptsFunc(ctx, username, address)
	}
	return 5, nil
}

func (m *MockAttemptGuard) LockDuration() time.Duration {
	return 30 * time.Minute
}

func (m *MockAttemptGuard) MaxAttempts() int {
	return 5
}
