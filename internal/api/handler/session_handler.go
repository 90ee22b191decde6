package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/api/metrics"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// SessionHandler handles HTTP requests for the session lifecycle.
type SessionHandler struct {
	service ports.SessionService
}

func NewSessionHandler(service ports.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create starts a session: it provisions the external media room and notifies
// every requested device group.
//
// @Summary      Create a session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string                true  "Project id"
// @Param        body        body      createSessionRequest  true  "Session details"
// @Success      201         {object}  sessionResponse
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      422         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions [post]
func (h *SessionHandler) Create(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	session, err := h.service.Create(c.Request().Context(), project, ports.CreateSessionInput{
		Name:            req.Name,
		Comments:        req.Comments,
		MaxParticipants: req.MaxParticipants,
		EmptyTimeout:    req.EmptyTimeout,
		DeviceGroups:    req.DeviceGroups,
	})
	if err != nil {
		return err
	}

	metrics.SessionsCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

// List returns all sessions of a project.
//
// @Summary      List sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Success      200         {array}   sessionResponse
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions [get]
func (h *SessionHandler) List(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	sessions, err := h.service.List(c.Request().Context(), project.ID)
	if err != nil {
		return err
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns one session.
//
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Param        session_id  path      string  true  "Session id"
// @Success      200         {object}  sessionResponse
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions/{session_id} [get]
func (h *SessionHandler) Get(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	session, err := h.service.Get(c.Request().Context(), project.ID, c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Stop ends a started session: the external room is deleted and egresses are
// reconciled. Stopping a session that is not started yields 409.
//
// @Summary      Stop a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Param        session_id  path      string  true  "Session id"
// @Success      200         {object}  sessionResponse
// @Failure      404         {object}  map[string]string
// @Failure      409         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions/{session_id}/stop [post]
func (h *SessionHandler) Stop(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	sessionID := c.Param("session_id")
	if err := h.service.Stop(c.Request().Context(), project, sessionID); err != nil {
		return err
	}

	metrics.SessionsStoppedTotal.Inc()
	session, err := h.service.Get(c.Request().Context(), project.ID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Delete removes a session row, tearing down its room first when it is still
// active.
//
// @Summary      Delete a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Param        session_id  path      string  true  "Session id"
// @Success      204         "no content"
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions/{session_id} [delete]
func (h *SessionHandler) Delete(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), project, c.Param("session_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Token mints a media-room join token for an active session. The token
// authenticates into the media room, not into this API.
//
// @Summary      Mint a media-room access token
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string               true  "Project id"
// @Param        session_id  path      string               true  "Session id"
// @Param        body        body      sessionTokenRequest  true  "Grant details"
// @Success      200         {object}  sessionTokenResponse
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      409         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions/{session_id}/token [post]
func (h *SessionHandler) Token(c echo.Context) error {
	var req sessionTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	token, err := h.service.AccessToken(c.Request().Context(), project, c.Param("session_id"), ports.SessionTokenInput{
		Room:       req.Room,
		Identity:   req.Identity,
		CanPublish: req.CanPublish,
	})
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("room").Inc()
	return c.JSON(http.StatusOK, sessionTokenResponse{Token: token})
}

// Egresses lists the session's recordings with signed download URLs for the
// completed ones.
//
// @Summary      List session egresses
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Param        session_id  path      string  true  "Session id"
// @Success      200         {array}   egressResponse
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/sessions/{session_id}/egresses [get]
func (h *SessionHandler) Egresses(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListEgresses(c.Request().Context(), project, c.Param("session_id"))
	if err != nil {
		return err
	}

	resp := make([]egressResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toEgressResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}
