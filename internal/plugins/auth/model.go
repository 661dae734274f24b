// Package auth handles registration, login, session tokens, and role checks
// for the CRM. Sessions are signed JWTs carried in an HttpOnly cookie; every
// protected request re-reads the user so deactivation and role changes take
// effect immediately.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"
)

// User is the CRM account as stored in the users table. Database scanning
// and JSON marshaling use this struct directly.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	FullName     string    `json:"full_name,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	// AdminPassword is the raw admin_password_hash column: nil when unset,
	// otherwise a hash or a legacy plaintext value. Use AdminSecret to
	// interpret it.
	AdminPassword *string `json:"-"`
}

// AdminSecret classifies the stored secondary credential. Returns nil when
// the user has none.
func (u *User) AdminSecret() AdminSecret {
	if u.AdminPassword == nil || *u.AdminPassword == "" {
		return nil
	}
	return ParseAdminSecret(*u.AdminPassword)
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the JSON body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest holds the JSON body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the input for creating a new user.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// LoginInput is the input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// --- Responses ---

// TokenResponse describes an issued session token. The cookie is the
// credential browsers use; the body copy serves API clients.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}
