package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// stubProjectRepo resolves scripted projects by id and owner.
type stubProjectRepo struct {
	projects map[string]*domain.Project
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (r *stubProjectRepo) FindByUserAndID(_ context.Context, userID, projectID string) (*domain.Project, error) {
	p, ok := r.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (r *stubProjectRepo) ListByUser(_ context.Context, userID string) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProjectRepo) AddDeviceGroup(_ context.Context, projectID, group string) error {
	p, ok := r.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.DeviceGroups = append(p.DeviceGroups, group)
	return nil
}

func ownershipContext(identity *domain.Identity, projectID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("project_id")
	c.SetParamValues(projectID)
	if identity != nil {
		c.Set("identity", identity)
	}
	return c, rec
}

func newOwnershipRepo() *stubProjectRepo {
	return &stubProjectRepo{projects: map[string]*domain.Project{
		"proj-1": {ID: "proj-1", UserID: "user-1", Name: "lab"},
	}}
}

func TestOwnership_OwnerResolvesProject(t *testing.T) {
	mw := Ownership(newOwnershipRepo())
	c, _ := ownershipContext(&domain.Identity{Kind: domain.TokenKindLogin, UserID: "user-1"}, "proj-1")

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		project, ok := c.Get("project").(*domain.Project)
		if !ok || project.ID != "proj-1" {
			t.Fatalf("project not injected")
		}
		return c.NoContent(http.StatusOK)
	})(c)

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestOwnership_ForeignUserReadsAsNotFound(t *testing.T) {
	mw := Ownership(newOwnershipRepo())
	c, _ := ownershipContext(&domain.Identity{Kind: domain.TokenKindLogin, UserID: "user-2"}, "proj-1")

	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestOwnership_ProjectTokenScopedToItsProject(t *testing.T) {
	mw := Ownership(newOwnershipRepo())

	identity := &domain.Identity{Kind: domain.TokenKindProject, ProjectID: "proj-1"}
	c, _ := ownershipContext(identity, "proj-1")
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if err != nil {
		t.Fatalf("own project rejected: %v", err)
	}

	c, _ = ownershipContext(identity, "proj-2")
	err = mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for foreign project, got %v", err)
	}
}

func TestOwnership_MissingIdentity(t *testing.T) {
	mw := Ownership(newOwnershipRepo())
	c, _ := ownershipContext(nil, "proj-1")

	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestOwnership_MissingProjectID(t *testing.T) {
	mw := Ownership(newOwnershipRepo())
	c, _ := ownershipContext(&domain.Identity{Kind: domain.TokenKindLogin, UserID: "user-1"}, "")

	err := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
