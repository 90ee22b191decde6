package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

func newTestAuthority(t *testing.T) (*TokenAuthority, *stubUserRepo, *stubLoginSessions, *stubKeyRepo) {
	t.Helper()
	users := newStubUserRepo()
	sessions := newStubLoginSessions()
	keys := newStubKeyRepo()
	authority := NewTokenAuthority(keys, users, sessions, testVault(t), time.Hour, 2*time.Hour, nopLogger())
	return authority, users, sessions, keys
}

func seedLogin(t *testing.T, a *TokenAuthority, users *stubUserRepo, sessions *stubLoginSessions) (*domain.User, *ports.TokenPair, string) {
	t.Helper()
	user := &domain.User{ID: "user-1", Username: "alice", Role: domain.RoleMember}
	if _, err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	ls := &domain.LoginSession{ID: "ls-1", UserID: user.ID, CreatedAt: time.Now().UTC()}
	if err := sessions.Create(context.Background(), ls, time.Hour); err != nil {
		t.Fatalf("seed login session: %v", err)
	}
	pair, err := a.IssueLoginPair(context.Background(), user, ls.ID)
	if err != nil {
		t.Fatalf("IssueLoginPair: %v", err)
	}
	return user, pair, ls.ID
}

func TestTokenAuthority_IssueAndVerifyLogin(t *testing.T) {
	a, users, sessions, keys := newTestAuthority(t)
	user, pair, lsID := seedLogin(t, a, users, sessions)

	identity, err := a.Verify(context.Background(), pair.LoginToken)
	if err != nil {
		t.Fatalf("Verify login token: %v", err)
	}
	if identity.Kind != domain.TokenKindLogin {
		t.Fatalf("kind: got %s", identity.Kind)
	}
	if identity.UserID != user.ID || identity.Role != user.Role {
		t.Fatalf("identity mismatch: %+v", identity)
	}
	if identity.LoginSessionID != lsID {
		t.Fatalf("login session: got %s want %s", identity.LoginSessionID, lsID)
	}

	// The login key pair was created lazily and its stored secret is vault
	// ciphertext, not the raw signing secret.
	lazyPair, err := keys.FindLoginKeyForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("login key pair not created: %v", err)
	}
	if lazyPair.Secret == "" {
		t.Fatalf("stored secret empty")
	}
	if _, err := a.vault.Decrypt(lazyPair.Secret); err != nil {
		t.Fatalf("stored secret is not vault ciphertext: %v", err)
	}
}

func TestTokenAuthority_LogoutInvalidatesBeforeExpiry(t *testing.T) {
	a, users, sessions, _ := newTestAuthority(t)
	_, pair, _ := seedLogin(t, a, users, sessions)

	if err := a.Logout(context.Background(), pair.LoginToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// Both halves of the pair die with the login session, well before exp.
	if _, err := a.Verify(context.Background(), pair.LoginToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after logout, got %v", err)
	}
	if _, err := a.Verify(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh after logout, got %v", err)
	}
}

func TestTokenAuthority_RefreshRotates(t *testing.T) {
	a, users, sessions, _ := newTestAuthority(t)
	_, pair, _ := seedLogin(t, a, users, sessions)

	fresh, err := a.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if fresh.LoginToken == "" || fresh.RefreshToken == "" {
		t.Fatalf("empty pair: %+v", fresh)
	}

	// Rotation: the exchanged refresh token no longer verifies.
	if _, err := a.Verify(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("old refresh token still valid after rotation")
	}
	if _, err := a.Verify(context.Background(), fresh.RefreshToken); err != nil {
		t.Fatalf("new refresh token invalid: %v", err)
	}
	// The login token from the first pair survives (only refresh rotates).
	if _, err := a.Verify(context.Background(), pair.LoginToken); err != nil {
		t.Fatalf("login token invalidated by refresh: %v", err)
	}
}

func TestTokenAuthority_RefreshRejectsLoginToken(t *testing.T) {
	a, users, sessions, _ := newTestAuthority(t)
	_, pair, _ := seedLogin(t, a, users, sessions)

	if _, err := a.Refresh(context.Background(), pair.LoginToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid when refreshing with a login token, got %v", err)
	}
}

func TestTokenAuthority_ExpiredLoginToken(t *testing.T) {
	users := newStubUserRepo()
	sessions := newStubLoginSessions()
	keys := newStubKeyRepo()
	a := NewTokenAuthority(keys, users, sessions, testVault(t), -time.Minute, 2*time.Hour, nopLogger())

	user := &domain.User{ID: "user-1", Username: "alice", Role: domain.RoleMember}
	_, _ = users.Create(context.Background(), user)
	_ = sessions.Create(context.Background(), &domain.LoginSession{ID: "ls-1", UserID: user.ID}, time.Hour)

	pair, err := a.IssueLoginPair(context.Background(), user, "ls-1")
	if err != nil {
		t.Fatalf("IssueLoginPair: %v", err)
	}
	if _, err := a.Verify(context.Background(), pair.LoginToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestTokenAuthority_TamperedToken(t *testing.T) {
	a, users, sessions, _ := newTestAuthority(t)
	_, pair, _ := seedLogin(t, a, users, sessions)

	tampered := pair.LoginToken[:len(pair.LoginToken)-2] + "xx"
	if _, err := a.Verify(context.Background(), tampered); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestTokenAuthority_GarbageToken(t *testing.T) {
	a, _, _, _ := newTestAuthority(t)
	if _, err := a.Verify(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenAuthority_ProjectToken(t *testing.T) {
	a, _, _, keys := newTestAuthority(t)

	encrypted, err := a.vault.Encrypt("project-signing-secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pair := &domain.ApiKeyPair{
		PublicID:  "mk_projkey",
		Secret:    encrypted,
		Kind:      domain.KeyKindAPI,
		ProjectID: "proj-1",
	}
	_ = keys.Create(context.Background(), pair)

	token, err := a.IssueProjectToken(context.Background(), "mk_projkey", time.Hour)
	if err != nil {
		t.Fatalf("IssueProjectToken: %v", err)
	}

	identity, err := a.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify project token: %v", err)
	}
	if identity.Kind != domain.TokenKindProject || identity.ProjectID != "proj-1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestTokenAuthority_ProjectTokenRequiresAPIKind(t *testing.T) {
	a, _, _, keys := newTestAuthority(t)

	encrypted, _ := a.vault.Encrypt("secret")
	_ = keys.Create(context.Background(), &domain.ApiKeyPair{
		PublicID: "mk_loginkey",
		Secret:   encrypted,
		Kind:     domain.KeyKindLogin,
		UserID:   "user-1",
	})

	if _, err := a.IssueProjectToken(context.Background(), "mk_loginkey", time.Hour); !errors.Is(err, domain.ErrKeyPairNotFound) {
		t.Fatalf("expected ErrKeyPairNotFound, got %v", err)
	}
}
