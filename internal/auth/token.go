package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopfloor/gatekeeper/internal/models"
)

// TokenManager mints and verifies signed session tokens. The signing key is
// process-wide configuration loaded once at startup; tokens are stateless
// and carry identity plus authority claims.
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// Identity is the claim payload for a token pair.
type Identity struct {
	UserID      string
	Username    string
	Email       string
	Roles       []string
	Authorities []string
}

// IssueAccessToken creates a signed session token for the identity
func (tm *TokenManager) IssueAccessToken(id Identity) (string, error) {
	return tm.issue(models.TokenTypeAccess, id, tm.accessTokenExpiry)
}

// IssueRefreshToken creates a longer-lived refresh token. Refresh tokens
// are not independently revocable; renewal trusts signature and expiry alone.
func (tm *TokenManager) IssueRefreshToken(id Identity) (string, error) {
	return tm.issue(models.TokenTypeRefresh, id, tm.refreshTokenExpiry)
}

func (tm *TokenManager) issue(tokenType string, id Identity, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:        tokenType,
		UserID:      id.UserID,
		Username:    id.Username,
		Email:       id.Email,
		Roles:       id.Roles,
		Authorities: id.Authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// VerifyToken checks a token string and returns its claims. Failures map to
// the token sentinel errors; the boundary surfaces them uniformly so callers
// cannot distinguish why verification failed.
func (tm *TokenManager) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, mapTokenError(err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, models.ErrTokenMalformed
	}

	return claims, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return models.ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return models.ErrTokenMalformed
	default:
		return fmt.Errorf("failed to parse token: %w", err)
	}
}
