package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// stubTokenService resolves scripted tokens to identities.
type stubTokenService struct {
	identities map[string]*domain.Identity
}

func (s *stubTokenService) Verify(_ context.Context, token string) (*domain.Identity, error) {
	id, ok := s.identities[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return id, nil
}

func (s *stubTokenService) IssueLoginPair(context.Context, *domain.User, string) (*ports.TokenPair, error) {
	panic("not used")
}

func (s *stubTokenService) IssueProjectToken(context.Context, string, time.Duration) (string, error) {
	panic("not used")
}

func (s *stubTokenService) Refresh(context.Context, string) (*ports.TokenPair, error) {
	panic("not used")
}

func (s *stubTokenService) Logout(context.Context, string) error {
	panic("not used")
}

func newStubTokens() *stubTokenService {
	return &stubTokenService{identities: map[string]*domain.Identity{
		"good-token": {Kind: domain.TokenKindLogin, UserID: "user-1", Role: domain.RoleMember},
	}}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(newStubTokens())
	handler := mw(func(c echo.Context) error {
		called = true
		identity, ok := c.Get("identity").(*domain.Identity)
		if !ok || identity == nil {
			t.Fatalf("identity not set")
		}
		if identity.UserID != "user-1" || identity.Role != domain.RoleMember {
			t.Fatalf("identity: %+v", identity)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(newStubTokens())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(newStubTokens())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_UnknownToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(newStubTokens())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
