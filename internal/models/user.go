package models

import (
	"time"
)

// User account statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Phone        string
	AvatarURL    string
	Status       string // "active", "disabled"
	Roles        []Role
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleCodes returns the role codes attached to the user, in stored order.
func (u *User) RoleCodes() []string {
	codes := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		codes = append(codes, r.Code)
	}
	return codes
}
