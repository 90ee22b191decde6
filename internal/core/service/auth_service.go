package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// AuthService implements registration and the login-session lifecycle on top
// of the token authority.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.LoginSessionStore
	tokens     ports.TokenService
	refreshTTL time.Duration
	log        zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.LoginSessionStore,
	tokens ports.TokenService,
	refreshTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password, email, role string) (*domain.User, error) {
	if username == "" || password == "" || role == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.users.Create(ctx, user)
}

// Login verifies the password, creates a login session whose lifetime bounds
// the issued pair, and signs the pair with the user's login key.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.TokenPair, *domain.User, error) {
	if username == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	ls := &domain.LoginSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, ls, s.refreshTTL); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssueLoginPair(ctx, user, ls.ID)
	if err != nil {
		// The orphaned session expires on its own TTL.
		return nil, nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("login_session", ls.ID).Msg("user logged in")
	return pair, user, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.Logout(ctx, token)
}
