package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopfloor/gatekeeper/internal/auth"
	"github.com/shopfloor/gatekeeper/internal/models"
	pkgauth "github.com/shopfloor/gatekeeper/pkg/auth"
	pkglogger "github.com/shopfloor/gatekeeper/pkg/logger"
)

// UserRepository defines the persistence operations the auth flow needs
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// RoleRepository resolves role codes to stored roles
type RoleRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Role, error)
}

// AttemptGuard tracks signin failures per (username, address) pair
type AttemptGuard interface {
	IsLocked(ctx context.Context, username, address string) (bool, error)
	RecordFailure(ctx context.Context, username, address string) error
	RecordSuccess(ctx context.Context, username, address string) error
	RemainingAttempts(ctx context.Context, username, address string) (int, error)
	LockDuration() time.Duration
	MaxAttempts() int
}

// AuthService handles signin, signup and token refresh
type AuthService struct {
	users       UserRepository
	roles       RoleRepository
	guard       AttemptGuard
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, roles RoleRepository, guard AttemptGuard, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		roles:       roles,
		guard:       guard,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SignInResponse is the payload returned on successful authentication
type SignInResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

// SignUpResult carries the created account's identifiers
type SignUpResult struct {
	ID       string
	Username string
}

// SignIn authenticates a (username, password) pair originating from the
// given client address. The lockout check runs before any credential work,
// so a locked pair never exercises the password path. Guard storage errors
// fail open: an unreachable attempt tracker degrades lockout protection
// rather than taking signin down with it.
func (s *AuthService) SignIn(ctx context.Context, username, password, address string) (*SignInResponse, error) {
	username = strings.TrimSpace(username)

	locked, err := s.guard.IsLocked(ctx, username, address)
	if err != nil {
		s.logger.Error("attempt tracker unavailable, skipping lockout check", slog.Any("error", err))
		locked = false
	}
	if locked {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "signin_blocked",
			Username:      username,
			IPAddress:     address,
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, models.ErrAccountLocked
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a hash comparison so an unknown username costs the
			// same as a wrong password, then count the failure.
			pkgauth.BurnComparison(password)
			return nil, s.credentialFailure(ctx, username, address, "unknown_username")
		}
		s.logger.Error("failed to get user by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status != models.StatusActive {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "signin_failed",
			Username:      username,
			UserID:        user.ID,
			IPAddress:     address,
			FailureReason: "account_disabled",
			Success:       false,
		})
		return nil, models.ErrAccountDisabled
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.credentialFailure(ctx, username, address, "wrong_password")
	}

	if err := s.guard.RecordSuccess(ctx, username, address); err != nil {
		s.logger.Error("failed to reset attempt counter", slog.Any("error", err))
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Stamp failure is not worth failing the signin over.
		s.logger.Error("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	response, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "signin_success",
		Username:  username,
		UserID:    user.ID,
		IPAddress: address,
		Success:   true,
	})

	return response, nil
}

// credentialFailure records the failed attempt and builds the uniform
// invalid-credentials error with the remaining allowance.
func (s *AuthService) credentialFailure(ctx context.Context, username, address, reason string) error {
	if err := s.guard.RecordFailure(ctx, username, address); err != nil {
		s.logger.Error("failed to record signin failure", slog.Any("error", err))
	}

	remaining, err := s.guard.RemainingAttempts(ctx, username, address)
	if err != nil {
		s.logger.Error("failed to read attempt counter", slog.Any("error", err))
		remaining = s.guard.MaxAttempts()
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "signin_failed",
		Username:      username,
		IPAddress:     address,
		FailureReason: reason,
		Success:       false,
	})

	if remaining == 0 {
		s.auditLogger.LogLockout(username, address, s.guard.LockDuration())
	}

	return &models.InvalidCredentialsError{RemainingAttempts: remaining}
}

func (s *AuthService) issueTokens(user *models.User) (*SignInResponse, error) {
	roles := user.RoleCodes()

	authorities := make([]string, 0, len(roles))
	authorities = append(authorities, roles...)
	seen := make(map[string]bool)
	for _, role := range user.Roles {
		for _, code := range role.PermissionCodes() {
			if !seen[code] {
				seen[code] = true
				authorities = append(authorities, code)
			}
		}
	}

	identity := auth.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
		Authorities: authorities,
	}

	accessToken, err := s.tm.IssueAccessToken(identity)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.IssueRefreshToken(identity)
	if err != nil {
		s.logger.Error("failed to issue refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &SignInResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Roles:        roles,
	}, nil
}

// resolveRoles maps requested role names to stored roles. Unrecognized
// names fall through to the default USER role rather than failing signup.
func (s *AuthService) resolveRoles(ctx context.Context, requested []string) ([]models.Role, error) {
	codes := make([]string, 0, 1)
	seen := make(map[string]bool)

	for _, name := range requested {
		var code string
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "admin":
			code = models.RoleAdmin
		case "super_admin":
			code = models.RoleSuperAdmin
		default:
			code = models.RoleUser
		}
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	if len(codes) == 0 {
		codes = append(codes, models.RoleUser)
	}

	roles := make([]models.Role, 0, len(codes))
	for _, code := range codes {
		role, err := s.roles.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, models.ErrRoleNotFound) {
				s.logger.Error("seeded role missing", slog.String("code", code))
				return nil, models.ErrRoleNotFound
			}
			return nil, err
		}
		roles = append(roles, *role)
	}

	return roles, nil
}

// SignUp registers a new account. Username and email are checked for
// duplicates up front for a friendly error; the database unique constraints
// still settle concurrent races, which surface as the same duplicate errors.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string, requestedRoles []string, address string) (*SignUpResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error("failed to check username availability", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if taken {
		return nil, models.ErrDuplicateUsername
	}

	inUse, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to check email availability", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if inUse {
		return nil, models.ErrDuplicateEmail
	}

	roles, err := s.resolveRoles(ctx, requestedRoles)
	if err != nil {
		return nil, err
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Status:       models.StatusActive,
		Roles:        roles,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) || errors.Is(err, models.ErrDuplicateEmail) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_registered", created.ID, address, map[string]string{
		"username": created.Username,
		"email":    pkglogger.SanitizedEmail(created.Email),
	})

	return &SignUpResult{ID: created.ID, Username: created.Username}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The user
// is reloaded so revoked roles and disabled accounts take effect at renewal.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SignInResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.VerifyToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token verification failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status != models.StatusActive {
		return nil, models.ErrAccountDisabled
	}

	return s.issueTokens(user)
}
