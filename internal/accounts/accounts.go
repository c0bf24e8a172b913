// Package accounts owns platform user accounts, password hashing and login tokens.
package accounts

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("accounts: user not found")
	ErrEmailTaken         = errors.New("accounts: email already registered")
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	ErrInvalidRole        = errors.New("accounts: invalid role")
)

// Role is the coarse access split. Nothing finer-grained exists.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole validates a role string.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return r, nil
	}
	return "", ErrInvalidRole
}

// User is a login-capable account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser is the input to Repository.Create.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         Role
}
