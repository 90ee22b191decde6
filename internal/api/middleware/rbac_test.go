package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/core/domain"
)

func rbacContext(identity *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		c.Set("identity", identity)
	}
	return c, rec
}

func TestRequireRole_Allowed(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin, domain.RoleMember)
	c, rec := rbacContext(&domain.Identity{Kind: domain.TokenKindLogin, UserID: "u", Role: domain.RoleMember})

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected next to run with 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin)
	c, rec := rbacContext(&domain.Identity{Kind: domain.TokenKindLogin, UserID: "u", Role: domain.RoleMember})

	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRole_MachineTokenRejected(t *testing.T) {
	// Project tokens carry no role.
	mw := RequireRole(domain.RoleAdmin, domain.RoleMember)
	c, rec := rbacContext(&domain.Identity{Kind: domain.TokenKindProject, ProjectID: "proj-1"})

	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRole_MissingIdentity(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequireRole(domain.RoleAdmin)
	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
