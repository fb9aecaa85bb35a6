package dto

import "github.com/google/uuid"

type SignupRequest struct {
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	AgreedToTerms bool   `json:"agreedToTerms"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type GoogleSignInRequest struct {
	Token string `json:"token"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type SignupResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the public-safe projection of a user: no password hash,
// no role. Avatar is only set for Google sign-ins.
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar,omitempty"`
}

type VerifyTokenResponse struct {
	Valid   bool       `json:"valid"`
	User    *TokenUser `json:"user,omitempty"`
	Message string     `json:"message,omitempty"`
}

// TokenUser mirrors the claims embedded at issuance. It is decoded from the
// token itself, never re-fetched from storage.
type TokenUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
