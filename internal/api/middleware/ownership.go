package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// Ownership resolves the :project_id route param to a project the caller is
// entitled to and injects it under "project". A login identity must own the
// project; a machine identity must be bound to exactly this project. Lookup
// failures read as not-found, never as forbidden, so project ids cannot be
// probed.
func Ownership(projects ports.ProjectRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			projectID := c.Param("project_id")
			if projectID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing project id")
			}

			identity, ok := c.Get("identity").(*domain.Identity)
			if !ok || identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			var (
				project *domain.Project
				err     error
			)
			switch {
			case identity.ProjectID != "":
				if identity.ProjectID != projectID {
					return domain.ErrProjectNotFound
				}
				project, err = projects.FindByID(c.Request().Context(), projectID)
			case identity.UserID != "":
				project, err = projects.FindByUserAndID(c.Request().Context(), identity.UserID, projectID)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "token carries no principal")
			}
			if err != nil {
				return err
			}

			c.Set("project", project)
			return next(c)
		}
	}
}
