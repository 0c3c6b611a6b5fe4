package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication failures
	ErrAccountLocked     = errors.New("account is temporarily locked")
	ErrAccountDisabled   = errors.New("account is disabled")
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already in use")
	ErrRoleNotFound      = errors.New("role is not found")

	// Token validation failures
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenSignature = errors.New("token signature is invalid")
)

// InvalidCredentialsError is returned when a signin attempt fails credential
// verification. It carries the remaining attempt allowance for the
// (username, address) pair so the boundary can surface it to the caller.
// The message never distinguishes an unknown username from a wrong password.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	if e.RemainingAttempts == 1 {
		return "invalid username or password (1 attempt remaining)"
	}
	return fmt.Sprintf("invalid username or password (%d attempts remaining)", e.RemainingAttempts)
}

// IsInvalidCredentials reports whether err is an InvalidCredentialsError
// and returns it for access to the remaining-attempt count.
func IsInvalidCredentials(err error) (*InvalidCredentialsError, bool) {
	var ice *InvalidCredentialsError
	if errors.As(err, &ice) {
		return ice, true
	}
	return nil, false
}
