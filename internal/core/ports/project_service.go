package ports

import (
	"context"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// CreateProjectInput carries plaintext credentials; the service encrypts
// every secret field before persistence.
type CreateProjectInput struct {
	Name             string
	RoomAPIKey       string
	RoomAPISecret    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
}

// RegisterDeviceInput names a device and the registered group it joins.
type RegisterDeviceInput struct {
	Name        string
	DeviceGroup string
}

// IssuedKey is returned exactly once at key creation; the plaintext secret is
// never recoverable afterwards.
type IssuedKey struct {
	PublicID string
	Secret   string
}

// ProjectService provisions tenants and their signing keys.
type ProjectService interface {
	Create(ctx context.Context, userID string, input CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, userID, projectID string) (*domain.Project, error)
	List(ctx context.Context, userID string) ([]*domain.Project, error)
	AddDeviceGroup(ctx context.Context, projectID, group string) error
	// RegisterDevice adds a device to one of the project's registered groups.
	RegisterDevice(ctx context.Context, project *domain.Project, input RegisterDeviceInput) (*domain.Device, error)
	ListDevices(ctx context.Context, projectID string) ([]*domain.Device, error)
	// IssueProjectKey creates an api-kind key pair for the project and mints
	// a project token signed with it.
	IssueProjectKey(ctx context.Context, projectID string) (*IssuedKey, string, error)
}
