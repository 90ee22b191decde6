package domain

import (
	"errors"
	"time"
)

// TokenKind is the explicit discriminant carried in every signed token's
// claims, so verification never has to guess a token's shape.
type TokenKind string

const (
	TokenKindLogin   TokenKind = "login"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindAPI     TokenKind = "api"
	TokenKindProject TokenKind = "project"
)

// ErrTokenInvalid is the single error returned for every verification
// failure: unknown issuer, bad signature, expired, revoked login session.
// Callers cannot distinguish which check failed; the real cause is logged
// server-side only.
var ErrTokenInvalid = errors.New("invalid token")

var ErrLoginSessionNotFound = errors.New("login session not found")

// Identity is the result of verifying a token: who the caller is, resolved
// from the token's kind-specific claims.
type Identity struct {
	Kind TokenKind

	// Set for login tokens.
	UserID string
	Role   string

	// Set for login and refresh tokens.
	LoginSessionID string

	// Set for project tokens and scoped api tokens.
	ProjectID string
}

// LoginSession bounds the validity of all login/refresh tokens referencing
// it: deleting the row invalidates them on their next verification.
type LoginSession struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// RefreshTokenID is the jti of the currently valid refresh token.
	// Rotation on refresh replaces it, killing the previous refresh token.
	RefreshTokenID string    `json:"refresh_token_id"`
	CreatedAt      time.Time `json:"created_at"`
}
