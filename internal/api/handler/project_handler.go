package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/meetkit/internal/api/metrics"
	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// ProjectHandler handles HTTP requests for project provisioning.
type ProjectHandler struct {
	service ports.ProjectService
}

func NewProjectHandler(service ports.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Name             string `json:"name" validate:"required,min=3"`
	RoomAPIKey       string `json:"room_api_key" validate:"required"`
	RoomAPISecret    string `json:"room_api_secret" validate:"required"`
	StorageAccessKey string `json:"storage_access_key"`
	StorageSecretKey string `json:"storage_secret_key"`
	StorageBucket    string `json:"storage_bucket"`
}

type addDeviceGroupRequest struct {
	DeviceGroup string `json:"device_group" validate:"required,min=1"`
}

type registerDeviceRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	DeviceGroup string `json:"device_group" validate:"required,min=1"`
}

type issuedKeyResponse struct {
	KeyID string `json:"key_id"`
	// Secret is shown exactly once; only ciphertext is persisted.
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

// Create registers a new project tenant. Credential fields are encrypted at
// rest and never returned.
//
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProjectRequest  true  "Project details"
// @Success      201   {object}  domain.Project
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	project, err := h.service.Create(c.Request().Context(), identity.UserID, ports.CreateProjectInput{
		Name:             req.Name,
		RoomAPIKey:       req.RoomAPIKey,
		RoomAPISecret:    req.RoomAPISecret,
		StorageAccessKey: req.StorageAccessKey,
		StorageSecretKey: req.StorageSecretKey,
		StorageBucket:    req.StorageBucket,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, project)
}

// List returns the caller's projects.
//
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Project
// @Failure      401  {object}  map[string]string
// @Router       /v1/projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	projects, err := h.service.List(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

// Get returns one project the caller owns.
//
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Success      200         {object}  domain.Project
// @Failure      401         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// AddDeviceGroup registers a device group, widening the project's broker
// routing-key namespace.
//
// @Summary      Register a device group
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string                 true  "Project id"
// @Param        body        body      addDeviceGroupRequest  true  "Device group"
// @Success      201         {object}  domain.Project
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      409         {object}  map[string]string
// @Router       /v1/projects/{project_id}/device-groups [post]
func (h *ProjectHandler) AddDeviceGroup(c echo.Context) error {
	var req addDeviceGroupRequest
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

	if err := h.service.AddDeviceGroup(c.Request().Context(), project.ID, req.DeviceGroup); err != nil {
		return err
	}

	project.DeviceGroups = append(project.DeviceGroups, req.DeviceGroup)
	return c.JSON(http.StatusCreated, project)
}

// RegisterDevice adds a device to one of the project's registered groups.
//
// @Summary      Register a device
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string                 true  "Project id"
// @Param        body        body      registerDeviceRequest  true  "Device details"
// @Success      201         {object}  domain.Device
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Failure      409         {object}  map[string]string
// @Failure      422         {object}  map[string]string
// @Router       /v1/projects/{project_id}/devices [post]
func (h *ProjectHandler) RegisterDevice(c echo.Context) error {
	var req registerDeviceRequest
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

	device, err := h.service.RegisterDevice(c.Request().Context(), project, ports.RegisterDeviceInput{
		Name:        req.Name,
		DeviceGroup: req.DeviceGroup,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, device)
}

// ListDevices returns the project's registered devices.
//
// @Summary      List devices
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Success      200         {array}   domain.Device
// @Failure      401         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/devices [get]
func (h *ProjectHandler) ListDevices(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	devices, err := h.service.ListDevices(c.Request().Context(), project.ID)
	if err != nil {
		return err
	}
	if devices == nil {
		devices = []*domain.Device{}
	}
	return c.JSON(http.StatusOK, devices)
}

// IssueKey creates an api-kind key pair for the project and mints a machine
// token signed with it.
//
// @Summary      Issue a project key and machine token
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  path      string  true  "Project id"
// @Success      201         {object}  issuedKeyResponse
// @Failure      401         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /v1/projects/{project_id}/keys [post]
func (h *ProjectHandler) IssueKey(c echo.Context) error {
	project, err := ctxProject(c)
	if err != nil {
		return err
	}

	key, token, err := h.service.IssueProjectKey(c.Request().Context(), project.ID)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("project").Inc()
	return c.JSON(http.StatusCreated, issuedKeyResponse{
		KeyID:  key.PublicID,
		Secret: key.Secret,
		Token:  token,
	})
}
