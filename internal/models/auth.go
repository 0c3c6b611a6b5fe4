package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set embedded in signed session tokens.
// Roles holds role codes; Authorities is the flattened capability set
// (role codes plus permission codes) checked by HasAuthority.
type TokenClaims struct {
	Type        string   `json:"type"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// HasAuthority reports whether the authenticated principal carries the
// required authority string. Pure membership check; no store access.
func (c *TokenClaims) HasAuthority(required string) bool {
	for _, a := range c.Authorities {
		if a == required {
			return true
		}
	}
	return false
}
