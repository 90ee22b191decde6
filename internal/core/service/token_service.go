package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
	"github.com/meetkit/meetkit/internal/pkg/secrets"
)

// Claims carried by every token kind. Kind is an explicit signed discriminant
// so verification never guesses a token's shape from its fields.
type baseClaims struct {
	jwt.RegisteredClaims
	Kind domain.TokenKind `json:"kind"`
}

type loginClaims struct {
	jwt.RegisteredClaims
	Kind         domain.TokenKind `json:"kind"`
	UserID       string           `json:"user_id"`
	Role         string           `json:"role"`
	LoginSession string           `json:"login_session"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	Kind         domain.TokenKind `json:"kind"`
	LoginSession string           `json:"login_session"`
}

type apiClaims struct {
	jwt.RegisteredClaims
	Kind      domain.TokenKind `json:"kind"`
	ProjectID string           `json:"project,omitempty"`
}

type projectClaims struct {
	jwt.RegisteredClaims
	Kind      domain.TokenKind `json:"kind"`
	ProjectID string           `json:"project_id"`
}

// TokenAuthority issues and verifies all four token kinds. The signing
// secret for a token is the vault-decrypted secret of the ApiKeyPair whose
// public id is the token's `iss` claim. There is no global signing key.
type TokenAuthority struct {
	keys       ports.ApiKeyRepository
	users      ports.UserRepository
	sessions   ports.LoginSessionStore
	vault      *secrets.Vault
	loginTTL   time.Duration
	refreshTTL time.Duration
	log        zerolog.Logger
}

func NewTokenAuthority(
	keys ports.ApiKeyRepository,
	users ports.UserRepository,
	sessions ports.LoginSessionStore,
	vault *secrets.Vault,
	loginTTL, refreshTTL time.Duration,
	log zerolog.Logger,
) *TokenAuthority {
	if loginTTL <= 0 {
		loginTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenAuthority{
		keys:       keys,
		users:      users,
		sessions:   sessions,
		vault:      vault,
		loginTTL:   loginTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// IssueLoginPair signs a login and refresh token with the user's login key
// pair, creating the pair lazily on first login. Both tokens carry the same
// login session id; the refresh token's jti is stored on the session for
// rotation binding.
func (a *TokenAuthority) IssueLoginPair(ctx context.Context, user *domain.User, loginSessionID string) (*ports.TokenPair, error) {
	pair, err := a.loginKeyFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	secret, err := a.vault.Decrypt(pair.Secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loginExp := now.Add(a.loginTTL)
	refreshExp := now.Add(a.refreshTTL)

	loginToken, err := sign(secret, loginClaims{
		RegisteredClaims: registered(pair.PublicID, now, loginExp, ""),
		Kind:             domain.TokenKindLogin,
		UserID:           user.ID,
		Role:             user.Role,
		LoginSession:     loginSessionID,
	})
	if err != nil {
		return nil, err
	}

	jti, err := randomHex(16)
	if err != nil {
		return nil, err
	}
	refreshToken, err := sign(secret, refreshClaims{
		RegisteredClaims: registered(pair.PublicID, now, refreshExp, jti),
		Kind:             domain.TokenKindRefresh,
		LoginSession:     loginSessionID,
	})
	if err != nil {
		return nil, err
	}

	if err := a.sessions.SetRefreshTokenID(ctx, loginSessionID, jti); err != nil {
		return nil, err
	}

	return &ports.TokenPair{
		LoginToken:       loginToken,
		LoginExpiresAt:   loginExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueProjectToken signs a machine token with the api-kind key pair
// identified by keyPublicID.
func (a *TokenAuthority) IssueProjectToken(ctx context.Context, keyPublicID string, ttl time.Duration) (string, error) {
	pair, err := a.keys.FindByPublicID(ctx, keyPublicID)
	if err != nil {
		return "", err
	}
	if pair.Kind != domain.KeyKindAPI || pair.ProjectID == "" {
		return "", domain.ErrKeyPairNotFound
	}
	secret, err := a.vault.Decrypt(pair.Secret)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	return sign(secret, projectClaims{
		RegisteredClaims: registered(pair.PublicID, now, now.Add(ttl), ""),
		Kind:             domain.TokenKindProject,
		ProjectID:        pair.ProjectID,
	})
}

// Verify decodes the token without signature verification to learn its
// issuer and kind, resolves the issuer's key pair, decrypts its secret, and
// re-verifies the full token. Kind invariants:
//   - login:   the login session must still exist and exp must not have passed
//   - refresh: the login session must exist and the jti must be the current one
//   - api:     exp must not have passed; project scope is optional
//   - project: exp must not have passed
//
// Every failure collapses to domain.ErrTokenInvalid; the cause is logged at
// debug level only.
func (a *TokenAuthority) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := a.verify(ctx, token)
	if err != nil {
		a.log.Debug().Err(err).Msg("token verification failed")
		return nil, domain.ErrTokenInvalid
	}
	return identity, nil
}

func (a *TokenAuthority) verify(ctx context.Context, token string) (*domain.Identity, error) {
	var base baseClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &base); err != nil {
		return nil, err
	}
	issuer := base.Issuer
	if issuer == "" {
		return nil, errors.New("token has no issuer")
	}

	pair, err := a.keys.FindByPublicID(ctx, issuer)
	if err != nil {
		return nil, err
	}
	secret, err := a.vault.Decrypt(pair.Secret)
	if err != nil {
		return nil, err
	}

	switch base.Kind {
	case domain.TokenKindLogin:
		var claims loginClaims
		if err := parse(token, secret, &claims); err != nil {
			return nil, err
		}
		if _, err := a.sessions.Get(ctx, claims.LoginSession); err != nil {
			return nil, err
		}
		return &domain.Identity{
			Kind:           domain.TokenKindLogin,
			UserID:         claims.UserID,
			Role:           claims.Role,
			LoginSessionID: claims.LoginSession,
		}, nil

	case domain.TokenKindRefresh:
		var claims refreshClaims
		if err := parse(token, secret, &claims); err != nil {
			return nil, err
		}
		ls, err := a.sessions.Get(ctx, claims.LoginSession)
		if err != nil {
			return nil, err
		}
		if ls.RefreshTokenID == "" || ls.RefreshTokenID != claims.ID {
			return nil, errors.New("refresh token superseded by rotation")
		}
		return &domain.Identity{
			Kind:           domain.TokenKindRefresh,
			UserID:         ls.UserID,
			LoginSessionID: claims.LoginSession,
		}, nil

	case domain.TokenKindAPI:
		var claims apiClaims
		if err := parse(token, secret, &claims); err != nil {
			return nil, err
		}
		return &domain.Identity{
			Kind:      domain.TokenKindAPI,
			UserID:    pair.UserID,
			ProjectID: claims.ProjectID,
		}, nil

	case domain.TokenKindProject:
		var claims projectClaims
		if err := parse(token, secret, &claims); err != nil {
			return nil, err
		}
		if claims.ProjectID != pair.ProjectID {
			return nil, errors.New("project claim does not match signing key")
		}
		return &domain.Identity{
			Kind:      domain.TokenKindProject,
			ProjectID: claims.ProjectID,
		}, nil

	default:
		return nil, errors.New("unknown token kind")
	}
}

// Refresh verifies the refresh token, reloads its login session, and
// reissues a fresh pair. Rotation: IssueLoginPair stores the new refresh jti
// on the session, so the token being exchanged here stops verifying.
func (a *TokenAuthority) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	identity, err := a.Verify(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if identity.Kind != domain.TokenKindRefresh {
		return nil, domain.ErrTokenInvalid
	}

	ls, err := a.sessions.Get(ctx, identity.LoginSessionID)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	user, err := a.users.FindByID(ctx, ls.UserID)
	if err != nil {
		return nil, err
	}
	return a.IssueLoginPair(ctx, user, ls.ID)
}

// Logout deletes the token's login session. Outstanding login/refresh tokens
// referencing it fail verification from then on; no blacklist is required.
func (a *TokenAuthority) Logout(ctx context.Context, token string) error {
	identity, err := a.Verify(ctx, token)
	if err != nil {
		return err
	}
	if identity.LoginSessionID == "" {
		return domain.ErrTokenInvalid
	}
	return a.sessions.Delete(ctx, identity.LoginSessionID)
}

// loginKeyFor returns the user's login key pair, creating one on first use.
func (a *TokenAuthority) loginKeyFor(ctx context.Context, userID string) (*domain.ApiKeyPair, error) {
	pair, err := a.keys.FindLoginKeyForUser(ctx, userID)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, domain.ErrKeyPairNotFound) {
		return nil, err
	}

	publicID, err := randomHex(12)
	if err != nil {
		return nil, err
	}
	plainSecret, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	encrypted, err := a.vault.Encrypt(plainSecret)
	if err != nil {
		return nil, err
	}

	pair = &domain.ApiKeyPair{
		PublicID:  "mk_" + publicID,
		Secret:    encrypted,
		Kind:      domain.KeyKindLogin,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.keys.Create(ctx, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func registered(issuer string, iat, exp time.Time, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func parse(token, secret string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
