package ports

import (
	"context"
	"time"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// TokenPair is the result of issuing or refreshing a login.
type TokenPair struct {
	LoginToken       string
	LoginExpiresAt   time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService is the token authority: it issues and verifies the four token
// kinds, each signed with the decrypted secret of a per-principal key pair.
type TokenService interface {
	// IssueLoginPair signs a login/refresh pair for the user, both bound to
	// loginSessionID. The user's login key pair is created lazily on first use.
	IssueLoginPair(ctx context.Context, user *domain.User, loginSessionID string) (*TokenPair, error)

	// IssueProjectToken signs a long-lived machine token bound to a project,
	// using the given api-kind key pair.
	IssueProjectToken(ctx context.Context, keyPublicID string, ttl time.Duration) (string, error)

	// Verify resolves the token's issuer key pair, checks the signature with
	// its decrypted secret, and re-validates kind-specific invariants. Every
	// failure is domain.ErrTokenInvalid.
	Verify(ctx context.Context, token string) (*domain.Identity, error)

	// Refresh verifies a refresh token and reissues a pair for its login
	// session. Rotation: the previous refresh token becomes invalid.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Logout deletes the token's login session, invalidating all outstanding
	// login/refresh tokens referencing it.
	Logout(ctx context.Context, token string) error
}
