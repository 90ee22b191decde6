package ports

import (
	"context"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// AuthService implements registration and the login-session lifecycle.
type AuthService interface {
	Register(ctx context.Context, username, password, email, role string) (*domain.User, error)
	// Login verifies the password, creates a login session, and issues a
	// token pair bound to it.
	Login(ctx context.Context, username, password string) (*TokenPair, *domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, token string) error
}
