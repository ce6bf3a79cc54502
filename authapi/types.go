package authapi

import (
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
)

// Envelope is the uniform wrapper around every request and response body of the auth service.
type Envelope[T any] struct {
	// Success mirrors the HTTP outcome. Older deployments omit it.
	Success bool `json:"success,omitempty"`

	// Message is a human-readable outcome, e.g. "Invalid email or password".
	// On failures it is the text surfaced to the user.
	Message string `json:"message,omitempty"`

	// Data carries the payload. Absent on most failures.
	Data T `json:"data,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is the payload of a successful login or refresh.
type TokenResponse struct {
	// AccessToken is the short-lived bearer credential.
	// Usage: Authorization: Bearer <accessToken>
	// Opaque to the client: it is never parsed.
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged at /auth/refresh for a new pair.
	// Rotates on every use, so the previous value must be discarded.
	RefreshToken string `json:"refreshToken"`

	// TokenType is "Bearer".
	TokenType string `json:"tokenType,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	// A hint only: the server's 401 is the authoritative expiry signal.
	ExpiresIn int64 `json:"expiresIn,omitempty"`

	// User is the profile snapshot. Always present on login, present on refresh for current servers.
	User *users.User `json:"user,omitempty"`
}

// Pair extracts the persisted part of the response.
func (tr *TokenResponse) Pair() credentials.TokenPair {
	return credentials.TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
}

// Expiry converts ExpiresIn into an absolute time. Zero when the server gave no hint.
func (tr *TokenResponse) Expiry(now time.Time) time.Time {
	if tr.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(tr.ExpiresIn) * time.Second)
}

// RegisterRequest is the body of POST /auth/register (admin only on the server).
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=100"`
	Password    string `json:"password" validate:"required,min=6,max=100"`
	FirstName   string `json:"firstName" validate:"required,max=50"`
	LastName    string `json:"lastName" validate:"required,max=50"`
	EmployeeID  string `json:"employeeId,omitempty" validate:"omitempty,max=20"`
	PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,max=15"`
	JobTitle    string `json:"jobTitle,omitempty" validate:"omitempty,max=100"`
	Department  string `json:"department,omitempty" validate:"omitempty,max=50"`
	ManagerID   *int64 `json:"managerId,omitempty"`
}

// ChangePasswordRequest is the body of PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=100"`
}
