package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware. Its
// presence proves the middleware ran; a handler reached without it is a
// routing mistake and fails closed with 401.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	identity, ok := c.Get("identity").(*domain.Identity)
	if !ok || identity == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return identity, nil
}

// ctxProject extracts the project resolved by the Ownership middleware.
func ctxProject(c echo.Context) (*domain.Project, error) {
	project, ok := c.Get("project").(*domain.Project)
	if !ok || project == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing project claims")
	}
	return project, nil
}
