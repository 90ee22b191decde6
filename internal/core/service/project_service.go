package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
	"github.com/meetkit/meetkit/internal/pkg/secrets"
)

// projectTokenTTL bounds machine tokens minted at key issuance.
const projectTokenTTL = 365 * 24 * time.Hour

// ProjectSvc provisions tenants: it vault-encrypts every credential field
// before persistence and issues api-kind signing keys.
type ProjectSvc struct {
	projects ports.ProjectRepository
	devices  ports.DeviceRepository
	keys     ports.ApiKeyRepository
	tokens   ports.TokenService
	vault    *secrets.Vault
	log      zerolog.Logger
}

func NewProjectService(
	projects ports.ProjectRepository,
	devices ports.DeviceRepository,
	keys ports.ApiKeyRepository,
	tokens ports.TokenService,
	vault *secrets.Vault,
	log zerolog.Logger,
) *ProjectSvc {
	return &ProjectSvc{projects: projects, devices: devices, keys: keys, tokens: tokens, vault: vault, log: log}
}

func (s *ProjectSvc) Create(ctx context.Context, userID string, input ports.CreateProjectInput) (*domain.Project, error) {
	project := &domain.Project{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          input.Name,
		StorageBucket: input.StorageBucket,
		DeviceGroups:  []string{},
		CreatedAt:     time.Now().UTC(),
	}

	var err error
	if project.RoomAPIKey, err = s.vault.Encrypt(input.RoomAPIKey); err != nil {
		return nil, err
	}
	if project.RoomAPISecret, err = s.vault.Encrypt(input.RoomAPISecret); err != nil {
		return nil, err
	}
	if project.StorageAccessKey, err = s.vault.Encrypt(input.StorageAccessKey); err != nil {
		return nil, err
	}
	if project.StorageSecretKey, err = s.vault.Encrypt(input.StorageSecretKey); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.log.Info().Str("project_id", project.ID).Str("user_id", userID).Msg("project created")
	return project, nil
}

func (s *ProjectSvc) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	return s.projects.FindByUserAndID(ctx, userID, projectID)
}

func (s *ProjectSvc) List(ctx context.Context, userID string) ([]*domain.Project, error) {
	return s.projects.ListByUser(ctx, userID)
}

func (s *ProjectSvc) AddDeviceGroup(ctx context.Context, projectID, group string) error {
	return s.projects.AddDeviceGroup(ctx, projectID, group)
}

// RegisterDevice adds a device to a registered group; an unregistered group
// is rejected before persistence.
func (s *ProjectSvc) RegisterDevice(ctx context.Context, project *domain.Project, input ports.RegisterDeviceInput) (*domain.Device, error) {
	if !project.HasDeviceGroup(input.DeviceGroup) {
		return nil, domain.NewInvalidDeviceGroupError([]string{input.DeviceGroup})
	}

	device := &domain.Device{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Name:        input.Name,
		DeviceGroup: input.DeviceGroup,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("project_id", project.ID).
		Str("device", device.Name).
		Str("device_group", device.DeviceGroup).
		Msg("device registered")
	return device, nil
}

func (s *ProjectSvc) ListDevices(ctx context.Context, projectID string) ([]*domain.Device, error) {
	return s.devices.ListByProject(ctx, projectID)
}

// IssueProjectKey creates an api-kind key pair for the project. The
// plaintext secret is returned exactly once; only vault ciphertext persists.
func (s *ProjectSvc) IssueProjectKey(ctx context.Context, projectID string) (*ports.IssuedKey, string, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, "", err
	}

	publicID, err := randomHex(12)
	if err != nil {
		return nil, "", err
	}
	plainSecret, err := randomHex(32)
	if err != nil {
		return nil, "", err
	}
	encrypted, err := s.vault.Encrypt(plainSecret)
	if err != nil {
		return nil, "", err
	}

	pair := &domain.ApiKeyPair{
		PublicID:  "mk_" + publicID,
		Secret:    encrypted,
		Kind:      domain.KeyKindAPI,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.keys.Create(ctx, pair); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.IssueProjectToken(ctx, pair.PublicID, projectTokenTTL)
	if err != nil {
		return nil, "", err
	}

	s.log.Info().Str("project_id", projectID).Str("key_id", pair.PublicID).Msg("project key issued")
	return &ports.IssuedKey{PublicID: pair.PublicID, Secret: plainSecret}, token, nil
}
